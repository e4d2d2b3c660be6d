package fixtures

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/getantonio/tokenhub/internal/api"
)

// fixturesDir returns the absolute path to the fixtures directory.
func fixturesDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Dir(file)
}

// LoadDefinitionRaw loads definitions/<filename> with ${VAR} placeholders
// expanded from vars. Unknown placeholders expand to "".
func LoadDefinitionRaw(t *testing.T, filename string, vars map[string]string) []byte {
	t.Helper()
	path := filepath.Join(fixturesDir(), "definitions", filename)
	data, err := os.ReadFile(path)
	require.NoError(t, err, "failed to load fixture definition: %s", filename)
	return []byte(os.Expand(string(data), func(k string) string { return vars[k] }))
}

// LoadDefinition decodes an expanded definition into a create body.
func LoadDefinition(t *testing.T, filename string, vars map[string]string) api.CreateBody {
	t.Helper()
	var body api.CreateBody
	require.NoError(t, json.Unmarshal(LoadDefinitionRaw(t, filename, vars), &body))
	return body
}
