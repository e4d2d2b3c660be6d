package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getantonio/tokenhub/internal/api"
	"github.com/getantonio/tokenhub/internal/wallet"
)

// ---------------------------------------------------------------------------
// create / read
// ---------------------------------------------------------------------------

func TestCreateAndGet(t *testing.T) {
	h := newHarness(t)
	id := h.create()
	assert.True(t, strings.HasPrefix(id, "0x"))

	var v api.IssuanceView
	require.Equal(t, http.StatusOK, h.get("/v1/issuances/"+id, &v))
	assert.Equal(t, "ANT", v.Symbol)
	assert.Equal(t, h.owner.Address(), v.Owner)
	assert.Equal(t, "1000000", v.TotalSupply)
	assert.Equal(t, "NotStarted", v.Status)
	require.NotNil(t, v.Presale)
	assert.Equal(t, "100", v.Presale.HardCap)
	assert.Equal(t, "1000", v.Presale.Rate)
	require.Len(t, v.Allocations, 2)
	assert.Equal(t, "30%", v.Allocations[0].Share)
	require.Len(t, v.Vesting, 1)
	assert.Equal(t, "300000", v.Vesting[0].Total)

	var list []api.IssuanceView
	require.Equal(t, http.StatusOK, h.get("/v1/issuances", &list))
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)

	var bal map[string]string
	require.Equal(t, http.StatusOK, h.get("/v1/issuances/"+id+"/balances/"+treasury.Hex(), &bal))
	assert.Equal(t, "400000", bal["balance"])
}

func TestCreateRejectsBadTable(t *testing.T) {
	h := newHarness(t)
	body := h.createBody()
	body.Allocations[1].Share = "39"

	var e api.ErrorBody
	status := h.post("/v1/issuances", h.owner, body, &e)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "ConfigurationError", e.Kind)
	assert.Equal(t, "AllocationSum", e.Code)

	var list []api.IssuanceView
	h.get("/v1/issuances", &list)
	assert.Empty(t, list)
}

func TestCreateRejectsUnboundedDurations(t *testing.T) {
	h := newHarness(t)
	for name, mutate := range map[string]func(b *api.CreateBody){
		"vesting":   func(b *api.CreateBody) { b.Allocations[0].Duration = math.MaxInt64 },
		"liquidity": func(b *api.CreateBody) { b.Presale.LockDuration = math.MaxInt64 },
	} {
		t.Run(name, func(t *testing.T) {
			body := h.createBody()
			mutate(&body)
			var e api.ErrorBody
			assert.Equal(t, http.StatusBadRequest, h.post("/v1/issuances", h.owner, body, &e))
			assert.Equal(t, "ConfigurationError", e.Kind)
			assert.Equal(t, "TimeOutOfRange", e.Code)
		})
	}
}

func TestCreateRejectsMalformedAmounts(t *testing.T) {
	h := newHarness(t)
	body := h.createBody()
	body.InitialSupply = "1.0000000000000000001"

	var e api.ErrorBody
	assert.Equal(t, http.StatusBadRequest, h.post("/v1/issuances", h.owner, body, &e))
	assert.Equal(t, api.KindRequest, e.Kind)
	assert.Contains(t, e.Error, "initial_supply")
}

func TestUnknownIssuance(t *testing.T) {
	h := newHarness(t)

	var e api.ErrorBody
	assert.Equal(t, http.StatusNotFound, h.get("/v1/issuances/0xdead", &e))
	assert.Equal(t, api.KindNotFound, e.Kind)

	assert.Equal(t, http.StatusNotFound, h.post("/v1/issuances/0xdead/presale/close", nil, nil, &e))
}

func TestBadAddressInPath(t *testing.T) {
	h := newHarness(t)
	id := h.create()

	var e api.ErrorBody
	assert.Equal(t, http.StatusBadRequest, h.get("/v1/issuances/"+id+"/balances/bob", &e))
	assert.Equal(t, api.KindRequest, e.Kind)
}

// ---------------------------------------------------------------------------
// signatures
// ---------------------------------------------------------------------------

func TestSignatureChecks(t *testing.T) {
	h := newHarness(t)
	id := h.create()
	h.clock.Set(start)
	path := "/v1/issuances/" + id + "/presale/contribute"

	var e api.ErrorBody
	assert.Equal(t, http.StatusUnauthorized, h.post(path, nil, h.intent(h.alice, "1"), &e))
	assert.Equal(t, api.KindSignature, e.Kind)

	// bob signs a body claiming to be alice
	assert.Equal(t, http.StatusUnauthorized, h.post(path, h.bob, h.intent(h.alice, "1"), &e))

	expired := h.intent(h.alice, "1")
	expired.Deadline = start - 1
	assert.Equal(t, http.StatusUnauthorized, h.post(path, h.alice, expired, &e))

	far := h.intent(h.alice, "1")
	far.Deadline = start + api.MaxDeadlineSkew + 1
	assert.Equal(t, http.StatusBadRequest, h.post(path, h.alice, far, &e))

	missing := h.intent(h.alice, "1")
	missing.Deadline = 0
	assert.Equal(t, http.StatusBadRequest, h.post(path, h.alice, missing, &e))

	body := h.intent(h.alice, "1")
	assert.Equal(t, http.StatusOK, h.post(path, h.alice, body, nil))
	assert.Equal(t, http.StatusUnauthorized, h.post(path, h.alice, body, &e), "replay")
	assert.Contains(t, e.Error, "already used")

	var v api.PresaleView
	h.get("/v1/issuances/"+id+"/presale", &v)
	assert.Equal(t, "1", v.TotalContributed)
}

func TestUnknownFieldsRejected(t *testing.T) {
	h := newHarness(t)
	id := h.create()

	raw := []byte(fmt.Sprintf(`{"caller":%q,"deadline":%d,"amount":"1","bogus":true}`,
		h.alice.Address().Hex(), h.eng.Now()+60))
	req, err := http.NewRequest(http.MethodPost, h.srv.URL+"/v1/issuances/"+id+"/presale/contribute", bytes.NewReader(raw))
	require.NoError(t, err)
	sig, err := h.alice.SignIntent(req.Method, req.URL.Path, raw)
	require.NoError(t, err)
	req.Header.Set(wallet.SignatureHeader, sig)

	var e api.ErrorBody
	assert.Equal(t, http.StatusBadRequest, h.send(req, &e))
	assert.Equal(t, api.KindRequest, e.Kind)
}

func TestSignedIntentCannotBeRedirected(t *testing.T) {
	h := newHarness(t)
	id := h.create()
	other := "0x" + strings.Repeat("ab", 32)

	raw, err := json.Marshal(h.intent(h.owner, ""))
	require.NoError(t, err)
	sig, err := h.owner.SignIntent(http.MethodPost, "/v1/issuances/"+id+"/claims/proceeds", raw)
	require.NoError(t, err)

	for _, path := range []string{
		"/v1/issuances/" + id + "/liquidity/withdraw",
		"/v1/issuances/" + other + "/claims/proceeds",
	} {
		req, err := http.NewRequest(http.MethodPost, h.srv.URL+path, bytes.NewReader(raw))
		require.NoError(t, err)
		req.Header.Set(wallet.SignatureHeader, sig)

		var e api.ErrorBody
		assert.Equal(t, http.StatusUnauthorized, h.send(req, &e), path)
		assert.Equal(t, api.KindSignature, e.Kind)
	}
}

func TestSignatureCheckCanBeDisabled(t *testing.T) {
	h := newHarness(t)
	id := h.create()
	h.clock.Set(start)

	open := api.New(h.eng, api.WithSignatureCheck(false))
	req := httptest.NewRequest(http.MethodPost, "/v1/issuances/"+id+"/presale/contribute",
		strings.NewReader(fmt.Sprintf(`{"caller":%q,"amount":"2"}`, h.bob.Address().Hex())))
	rec := httptest.NewRecorder()
	open.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

// ---------------------------------------------------------------------------
// lifecycle
// ---------------------------------------------------------------------------

func TestPresaleLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)
	id := h.create()
	base := "/v1/issuances/" + id
	var e api.ErrorBody

	assert.Equal(t, http.StatusConflict, h.post(base+"/presale/contribute", h.alice, h.intent(h.alice, "1"), &e))
	assert.Equal(t, "WindowError", e.Kind)
	assert.Equal(t, "PresaleNotActive", e.Code)

	h.clock.Set(start)
	var res map[string]string
	require.Equal(t, http.StatusOK, h.post(base+"/presale/contribute", h.alice, h.intent(h.alice, "60"), &res))
	assert.Equal(t, "Active", res["state"])
	require.Equal(t, http.StatusOK, h.post(base+"/presale/contribute", h.bob, h.intent(h.bob, "20"), nil))

	assert.Equal(t, http.StatusUnprocessableEntity, h.post(base+"/presale/contribute", h.bob, h.intent(h.bob, "41"), &e))
	assert.Equal(t, "AboveMaximum", e.Code)

	assert.Equal(t, http.StatusConflict, h.post(base+"/presale/finalize", nil, nil, &e))
	assert.Equal(t, "NotClosed", e.Code)

	h.clock.Set(end)
	require.Equal(t, http.StatusOK, h.post(base+"/presale/close", nil, nil, &res))
	assert.Equal(t, "Closed", res["state"])

	var out api.OutcomeView
	require.Equal(t, http.StatusOK, h.post(base+"/presale/finalize", nil, nil, &out))
	assert.Equal(t, "Finalized", string(out.State))
	assert.Equal(t, "80000", out.TokensSold)
	assert.Equal(t, "72", out.Proceeds)
	assert.Equal(t, "8", out.LiquidityNative)

	require.Equal(t, http.StatusOK, h.post(base+"/claims/tokens", h.alice, h.intent(h.alice, ""), &res))
	assert.Equal(t, "60000", res["amount"])
	var bal map[string]string
	h.get(base+"/balances/"+h.alice.Address().Hex(), &bal)
	assert.Equal(t, "60000", bal["balance"])

	assert.Equal(t, http.StatusForbidden, h.post(base+"/claims/proceeds", h.alice, h.intent(h.alice, ""), &e))
	assert.Equal(t, "AuthorizationError", e.Kind)
	require.Equal(t, http.StatusOK, h.post(base+"/claims/proceeds", h.owner, h.intent(h.owner, ""), &res))
	assert.Equal(t, "72", res["amount"])

	assert.Equal(t, http.StatusConflict, h.post(base+"/liquidity/withdraw", h.owner, h.intent(h.owner, ""), &e))
	assert.Equal(t, "StillLocked", e.Code)

	h.clock.Set(end + 30*day)
	var lock api.LockView
	require.Equal(t, http.StatusOK, h.post(base+"/liquidity/withdraw", h.owner, h.intent(h.owner, ""), &lock))
	assert.Equal(t, "100000", lock.TokenAmount)
	assert.Equal(t, "8", lock.NativeAmount)
	assert.False(t, lock.Locked)
}

func TestTokenAndVestingOverHTTP(t *testing.T) {
	h := newHarness(t)
	id := h.create()
	base := "/v1/issuances/" + id
	var e api.ErrorBody
	var res map[string]string

	mint := h.intent(h.owner, "5")
	to := h.alice.Address()
	mint.To = &to
	require.Equal(t, http.StatusOK, h.post(base+"/mint", h.owner, mint, &res))

	notOwner := h.intent(h.alice, "5")
	notOwner.To = &to
	assert.Equal(t, http.StatusForbidden, h.post(base+"/mint", h.alice, notOwner, &e))

	xfer := h.intent(h.alice, "2")
	bob := h.bob.Address()
	xfer.To = &bob
	require.Equal(t, http.StatusOK, h.post(base+"/transfer", h.alice, xfer, nil))
	require.Equal(t, http.StatusOK, h.post(base+"/burn", h.bob, h.intent(h.bob, "1"), nil))

	var bal map[string]string
	h.get(base+"/balances/"+bob.Hex(), &bal)
	assert.Equal(t, "1", bal["balance"])

	missingTo := h.intent(h.owner, "1")
	assert.Equal(t, http.StatusBadRequest, h.post(base+"/mint", h.owner, missingTo, &e))

	var vv api.VestingView
	require.Equal(t, http.StatusOK, h.get(base+"/vesting/"+team.Hex(), &vv))
	assert.Equal(t, "0", vv.Releasable)
	assert.Equal(t, http.StatusConflict, h.get(base+"/vesting/"+treasury.Hex(), &e))
	assert.Equal(t, "NoVesting", e.Code)

	revoke := h.intent(h.owner, "")
	revoke.Beneficiary = &team
	require.Equal(t, http.StatusOK, h.post(base+"/vesting/revoke", h.owner, revoke, &res))
	assert.Equal(t, "300000", res["amount"])
}

func TestWhitelistOverHTTP(t *testing.T) {
	h := newHarness(t)
	body := h.createBody()
	body.Presale.WhitelistEnabled = true
	var created map[string]string
	require.Equal(t, http.StatusCreated, h.post("/v1/issuances", h.owner, body, &created))
	base := "/v1/issuances/" + created["id"]
	h.clock.Set(start)

	var e api.ErrorBody
	assert.Equal(t, http.StatusUnprocessableEntity, h.post(base+"/presale/contribute", h.alice, h.intent(h.alice, "1"), &e))
	assert.Equal(t, "NotWhitelisted", e.Code)

	wl := h.intent(h.owner, "")
	wl.Add = []common.Address{h.alice.Address()}
	require.Equal(t, http.StatusOK, h.post(base+"/presale/whitelist", h.owner, wl, nil))
	assert.Equal(t, http.StatusOK, h.post(base+"/presale/contribute", h.alice, h.intent(h.alice, "1"), nil))

	empty := h.intent(h.owner, "")
	assert.Equal(t, http.StatusBadRequest, h.post(base+"/presale/whitelist", h.owner, empty, &e))
}

// ---------------------------------------------------------------------------
// metrics / health
// ---------------------------------------------------------------------------

func TestMetricsAndHealth(t *testing.T) {
	h := newHarness(t)
	h.create()

	var health map[string]string
	require.Equal(t, http.StatusOK, h.get("/healthz", &health))
	assert.Equal(t, "ok", health["status"])

	resp, err := h.srv.Client().Get(h.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tokenhub_issuances_created_total 1")
	assert.Contains(t, string(data), `tokenhub_operations_total{op="create",result="ok"}`)
}
