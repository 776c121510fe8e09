package cmd

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap/zaptest"
)

const acmeOrganizationsJSON = `[
  {"id": 1, "name": "Acme", "industry": "Retail", "tech_stack": "[\"React\", \"Node.js\"]"},
  {"id": 2, "name": "Globex", "tech_stack": "not json"}
]`

const acmeResultJSON = `{
  "assessment_id": "a-42",
  "assessment_type": "pentest",
  "test_cases_count": 12,
  "vulnerabilities_found": 2,
  "vulnerabilities": [
    {"id": 10, "title": "Missing CSP", "severity": "medium", "status": "open"},
    {"id": 9, "title": "SQL injection", "severity": "critical", "cvss_score": 9.8, "status": "open",
     "description": "Login form concatenates input", "remediation_plan": "Use parameterized queries"}
  ],
  "timestamp": "2024-03-01T10:15:30"
}`

// fakeBackend serves the SHIELD REST endpoints from canned payloads.
type fakeBackend struct {
	mu           sync.Mutex
	orgs         string
	orgsStatus   int
	submitStatus int
	submitBody   string
	submits      int
	lastSubmit   map[string]interface{}
	lastAuth     string
	testRuns     int
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	b := &fakeBackend{
		orgs:         acmeOrganizationsJSON,
		orgsStatus:   http.StatusOK,
		submitStatus: http.StatusOK,
		submitBody:   acmeResultJSON,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/organizations", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.lastAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(b.orgsStatus)
		if b.orgsStatus != http.StatusOK {
			_, _ = io.WriteString(w, `{"error": "database unavailable"}`)
			return
		}
		_, _ = io.WriteString(w, b.orgs)
	})
	mux.HandleFunc("GET /api/organizations/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		var orgs []map[string]interface{}
		_ = json.Unmarshal([]byte(b.orgs), &orgs)
		for _, org := range orgs {
			if id, ok := org["id"].(float64); ok && jsonNumber(id) == r.PathValue("id") {
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(org)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error": "Organization not found"}`)
	})
	mux.HandleFunc("GET /api/ai-agent-test-cases/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[
  {"id": 1, "name": "XSS payload", "type": "injection", "target": "/search", "status": "completed"},
  {"id": 2, "name": "Auth bypass", "type": "auth", "target": "/login", "status": "pending"}
]`)
	})
	mux.HandleFunc("GET /api/ai-agent-vulnerabilities/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[
  {"id": 3, "title": "Verbose errors", "severity": "low", "status": "open"},
  {"id": 4, "title": "Outdated TLS", "severity": "high", "cvss_score": 7.4, "status": "open"}
]`)
	})
	mux.HandleFunc("POST /api/ai-agent-assessment", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)

		b.mu.Lock()
		defer b.mu.Unlock()
		b.submits++
		b.lastSubmit = body
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(b.submitStatus)
		_, _ = io.WriteString(w, b.submitBody)
	})

	mux.HandleFunc("GET /api/test-cases/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.PathValue("id") != "5" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error": "Not found"}`)
			return
		}
		_, _ = io.WriteString(w, sqliTestCaseJSON)
	})
	mux.HandleFunc("GET /api/vulnerabilities", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("test_case_id") != "5" {
			_, _ = io.WriteString(w, `[]`)
			return
		}
		_, _ = io.WriteString(w, `[`+blindSQLiJSON+`]`)
	})
	mux.HandleFunc("GET /api/vulnerabilities/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.PathValue("id") != "9" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error": "Not found"}`)
			return
		}
		_, _ = io.WriteString(w, blindSQLiJSON)
	})
	mux.HandleFunc("POST /api/test-cases/{id}/run", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.testRuns++
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"test_case": `+sqliTestCaseJSON+`, "vulnerabilities": [`+blindSQLiJSON+`]}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return b, srv
}

const sqliTestCaseJSON = `{"id": 5, "name": "SQLi login", "test_type": "Injection", "status": "Failed",
  "organization_id": 1, "organization_name": "Acme", "parameters": {"endpoint": "/login"}}`

const blindSQLiJSON = `{"id": 9, "name": "Blind SQLi", "severity": "High", "status": "Open",
  "affected_components": "auth-service", "remediation": "Parameterize queries"}`

func (b *fakeBackend) testRunCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.testRuns
}

func (b *fakeBackend) submitCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submits
}

func (b *fakeBackend) lastSubmission() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSubmit
}

func (b *fakeBackend) authHeader() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastAuth
}

func jsonNumber(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

// setupTestAppContext installs an AppContext pointing at baseURL with a
// throwaway data directory. The returned func restores the previous one.
func setupTestAppContext(t *testing.T, baseURL string) (*AppContext, func()) {
	t.Helper()

	original := globalAppContext
	originalConfig := *cliConfig

	cfg := newCLIConfig()
	cfg.Defaults.Operator = "test-operator"
	if baseURL != "" {
		cfg.API.BaseURL = baseURL
	}
	*cliConfig = *cfg

	appCtx := &AppContext{
		Logger:   zaptest.NewLogger(t),
		Operator: "test-operator",
		DataDir:  t.TempDir(),
		Config:   cliConfig,
	}
	globalAppContext = appCtx

	return appCtx, func() {
		globalAppContext = original
		*cliConfig = originalConfig
	}
}

// prepareCommand resets cmd's flags to their defaults, applies set and wires
// output buffers, so package-level commands can be run directly.
func prepareCommand(t *testing.T, cmd *cobra.Command, out io.Writer, set map[string]string) {
	t.Helper()
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// inherited root flags write straight into cliConfig
		if rootCmd.PersistentFlags().Lookup(f.Name) != nil {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
	for name, value := range set {
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatalf("failed to set --%s: %v", name, err)
		}
	}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetContext(context.Background())
}

func disableColor(t *testing.T) {
	t.Helper()
	original := color.NoColor
	color.NoColor = true
	t.Cleanup(func() {
		color.NoColor = original
	})
}
