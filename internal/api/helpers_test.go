package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/getantonio/tokenhub/internal/api"
	"github.com/getantonio/tokenhub/internal/engine"
	"github.com/getantonio/tokenhub/internal/observability"
	"github.com/getantonio/tokenhub/internal/wallet"
)

const (
	day   = int64(86400)
	start = int64(1_700_000_000)
	end   = start + 7*day
)

var (
	team     = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	treasury = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

type clock struct {
	mu  sync.Mutex
	now int64
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Unix(c.now, 0)
}

func (c *clock) Set(now int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

type harness struct {
	t       *testing.T
	srv     *httptest.Server
	api     *api.Server
	eng     *engine.Engine
	clock   *clock
	metrics *observability.Metrics

	owner, alice, bob *wallet.Signer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log, _ := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	c := &clock{now: start - day}
	m := observability.NewMetrics("")
	eng := engine.New(engine.WithClock(c.Now), engine.WithMetrics(m), engine.WithLogger(log))
	s := api.New(eng, api.WithLogger(log), api.WithMetrics(m))
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	mgr := wallet.NewManager(wallet.WithInMemoryStore())
	signer := func(name string) *wallet.Signer {
		_, err := mgr.Generate(name)
		require.NoError(t, err)
		sg, err := mgr.Signer(name)
		require.NoError(t, err)
		return sg
	}

	return &harness{
		t: t, srv: srv, api: s, eng: eng, clock: c, metrics: m,
		owner: signer("owner"),
		alice: signer("alice"),
		bob:   signer("bob"),
	}
}

func (h *harness) envelope(as *wallet.Signer) api.Envelope {
	return api.Envelope{Caller: as.Address(), Deadline: h.eng.Now() + 60}
}

func (h *harness) intent(as *wallet.Signer, amount string) api.Intent {
	return api.Intent{Envelope: h.envelope(as), Amount: amount}
}

// post signs body as signer (nil sends it unsigned) and decodes the reply
// into out when it is non-nil.
func (h *harness) post(path string, as *wallet.Signer, body any, out any) int {
	h.t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(h.t, err)
	req, err := http.NewRequest(http.MethodPost, h.srv.URL+path, bytes.NewReader(raw))
	require.NoError(h.t, err)
	if as != nil {
		sig, err := as.SignIntent(req.Method, req.URL.Path, raw)
		require.NoError(h.t, err)
		req.Header.Set(wallet.SignatureHeader, sig)
	}
	return h.send(req, out)
}

func (h *harness) get(path string, out any) int {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.srv.URL+path, nil)
	require.NoError(h.t, err)
	return h.send(req, out)
}

func (h *harness) send(req *http.Request, out any) int {
	h.t.Helper()
	resp, err := h.srv.Client().Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	if out != nil {
		require.NoError(h.t, json.Unmarshal(data, out), string(data))
	}
	return resp.StatusCode
}

// createBody: 1,000,000 tokens, 20% presale, 10% liquidity, 30% vesting
// team, 40% treasury. Caps 50/100, 1..60 each, 1000 tokens per coin.
func (h *harness) createBody() api.CreateBody {
	return api.CreateBody{
		Envelope:       h.envelope(h.owner),
		Name:           "Antonio",
		Symbol:         "ANT",
		Decimals:       18,
		InitialSupply:  "1000000",
		MaxSupply:      "2000000",
		PercentUnit:    "percent",
		PresaleShare:   "20",
		LiquidityShare: "10",
		Allocations: []api.AllocationBody{
			{Wallet: team, Share: "30", Vesting: true, Duration: 365 * day, Cliff: 30 * day, Revocable: true},
			{Wallet: treasury, Share: "40"},
		},
		Presale: &api.PresaleBody{
			SoftCap:         "50",
			HardCap:         "100",
			MinContribution: "1",
			MaxContribution: "60",
			StartTime:       start,
			EndTime:         end,
			Rate:            "1000",
			LockDuration:    30 * day,
		},
	}
}

func (h *harness) create() string {
	h.t.Helper()
	var out map[string]string
	status := h.post("/v1/issuances", h.owner, h.createBody(), &out)
	require.Equal(h.t, http.StatusCreated, status, out)
	return out["id"]
}
