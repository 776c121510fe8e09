package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	authapp "github.com/shieldsec/shield-cli/internal/application/auth"
	sharedErrors "github.com/shieldsec/shield-cli/internal/shared/errors"
)

func TestLoginAndLogout(t *testing.T) {
	disableColor(t)
	appCtx, restore := setupTestAppContext(t, "")
	defer restore()

	var buf bytes.Buffer
	prepareCommand(t, loginCmd, &buf, nil)
	if err := loginCmd.RunE(loginCmd, nil); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Logged in as test-operator with a demo token") {
		t.Fatalf("unexpected login output: %q", buf.String())
	}

	svc, err := appCtx.services(context.Background())
	if err != nil {
		t.Fatalf("services failed: %v", err)
	}
	sess, err := svc.AuthService.Current(context.Background())
	if err != nil || sess == nil {
		t.Fatalf("expected stored session, got %v (%v)", sess, err)
	}
	if !authapp.IsDemoToken(sess.Token()) || sess.Operator() != "test-operator" {
		t.Fatalf("unexpected session: token=%q operator=%q", sess.Token(), sess.Operator())
	}

	buf.Reset()
	prepareCommand(t, logoutCmd, &buf, nil)
	if err := logoutCmd.RunE(logoutCmd, nil); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if sess, _ := svc.AuthService.Current(context.Background()); sess != nil {
		t.Fatal("expected session to be cleared")
	}
	// logging out twice is fine
	if err := logoutCmd.RunE(logoutCmd, nil); err != nil {
		t.Fatalf("second logout failed: %v", err)
	}
}

func TestLoginWithExplicitToken(t *testing.T) {
	disableColor(t)
	appCtx, restore := setupTestAppContext(t, "")
	defer restore()
	appCtx.Config.API.Token = "secret-token"

	var buf bytes.Buffer
	prepareCommand(t, loginCmd, &buf, nil)
	if err := loginCmd.RunE(loginCmd, nil); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if strings.Contains(buf.String(), "demo token") {
		t.Fatalf("explicit token should not be reported as demo: %q", buf.String())
	}

	svc, _ := appCtx.services(context.Background())
	sess, _ := svc.AuthService.Current(context.Background())
	if sess == nil || sess.Token() != "secret-token" {
		t.Fatalf("expected stored explicit token, got %v", sess)
	}
}

func TestOrgListAndView(t *testing.T) {
	disableColor(t)
	backend, srv := newFakeBackend(t)
	_, restore := setupTestAppContext(t, srv.URL)
	defer restore()

	var buf bytes.Buffer
	prepareCommand(t, orgListCmd, &buf, nil)
	if err := orgListCmd.RunE(orgListCmd, nil); err != nil {
		t.Fatalf("org list failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Acme") || !strings.Contains(buf.String(), "Globex") {
		t.Fatalf("unexpected org list output:\n%s", buf.String())
	}
	if backend.authHeader() != "" {
		t.Fatalf("expected no auth header without a session, got %q", backend.authHeader())
	}

	buf.Reset()
	prepareCommand(t, orgViewCmd, &buf, map[string]string{"id": "1", "output": "json"})
	if err := orgViewCmd.RunE(orgViewCmd, nil); err != nil {
		t.Fatalf("org view failed: %v", err)
	}
	var view map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &view); err != nil {
		t.Fatalf("expected JSON output: %v\n%s", err, buf.String())
	}
	if view["name"] != "Acme" {
		t.Fatalf("unexpected org view: %v", view)
	}

	prepareCommand(t, orgViewCmd, &buf, map[string]string{"id": "42"})
	err := orgViewCmd.RunE(orgViewCmd, nil)
	var notFound *OrganizationNotFoundError
	if !errors.As(err, &notFound) || notFound.ID != 42 {
		t.Fatalf("expected OrganizationNotFoundError, got %v", err)
	}

	prepareCommand(t, orgViewCmd, &buf, nil)
	if err := orgViewCmd.RunE(orgViewCmd, nil); err == nil || !strings.Contains(err.Error(), "--id is required") {
		t.Fatalf("expected missing id error, got %v", err)
	}
}

func TestOrgListSendsSessionToken(t *testing.T) {
	backend, srv := newFakeBackend(t)
	appCtx, restore := setupTestAppContext(t, srv.URL)
	defer restore()
	appCtx.Config.API.Token = "bearer-123"

	var buf bytes.Buffer
	prepareCommand(t, orgListCmd, &buf, nil)
	if err := orgListCmd.RunE(orgListCmd, nil); err != nil {
		t.Fatalf("org list failed: %v", err)
	}
	if backend.authHeader() != "Bearer bearer-123" {
		t.Fatalf("expected bearer token, got %q", backend.authHeader())
	}
}

func TestFindingsCommands(t *testing.T) {
	disableColor(t)
	_, srv := newFakeBackend(t)
	_, restore := setupTestAppContext(t, srv.URL)
	defer restore()

	var buf bytes.Buffer
	prepareCommand(t, findingsVulnsCmd, &buf, map[string]string{"org": "1"})
	if err := findingsVulnsCmd.RunE(findingsVulnsCmd, nil); err != nil {
		t.Fatalf("findings vulns failed: %v", err)
	}
	out := buf.String()
	high := strings.Index(out, "Outdated TLS")
	low := strings.Index(out, "Verbose errors")
	if high < 0 || low < 0 || high > low {
		t.Fatalf("expected most severe first:\n%s", out)
	}

	buf.Reset()
	prepareCommand(t, findingsVulnsCmd, &buf, map[string]string{"org": "1", "min-severity": "high"})
	if err := findingsVulnsCmd.RunE(findingsVulnsCmd, nil); err != nil {
		t.Fatalf("findings vulns failed: %v", err)
	}
	if strings.Contains(buf.String(), "Verbose errors") {
		t.Fatalf("low severity should be filtered:\n%s", buf.String())
	}

	prepareCommand(t, findingsVulnsCmd, &buf, map[string]string{"org": "1", "min-severity": "severe"})
	if err := findingsVulnsCmd.RunE(findingsVulnsCmd, nil); err == nil {
		t.Fatal("expected invalid severity to fail")
	}

	buf.Reset()
	prepareCommand(t, findingsTestCasesCmd, &buf, map[string]string{"org": "1", "status": "pending"})
	if err := findingsTestCasesCmd.RunE(findingsTestCasesCmd, nil); err != nil {
		t.Fatalf("findings testcases failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Auth bypass") || strings.Contains(buf.String(), "XSS payload") {
		t.Fatalf("unexpected filtered test cases:\n%s", buf.String())
	}

	prepareCommand(t, findingsTestCasesCmd, &buf, nil)
	if err := findingsTestCasesCmd.RunE(findingsTestCasesCmd, nil); err == nil || !strings.Contains(err.Error(), "--org is required") {
		t.Fatalf("expected missing org error, got %v", err)
	}
}

func TestFindingsShowAndRun(t *testing.T) {
	disableColor(t)
	backend, srv := newFakeBackend(t)
	_, restore := setupTestAppContext(t, srv.URL)
	defer restore()

	var buf bytes.Buffer
	prepareCommand(t, findingsShowCmd, &buf, map[string]string{"test-case": "5"})
	if err := findingsShowCmd.RunE(findingsShowCmd, nil); err != nil {
		t.Fatalf("findings show failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Test case SQLi login (#5)", "Organization: Acme (#1)", "endpoint = /login", "Blind SQLi"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}

	buf.Reset()
	prepareCommand(t, findingsShowCmd, &buf, map[string]string{"vuln": "9", "output": "json"})
	if err := findingsShowCmd.RunE(findingsShowCmd, nil); err != nil {
		t.Fatalf("findings show --vuln failed: %v", err)
	}
	var vuln map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &vuln); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, buf.String())
	}
	if vuln["title"] != "Blind SQLi" || vuln["affected_components"] != "auth-service" || vuln["severity"] != "high" {
		t.Fatalf("unexpected vulnerability: %v", vuln)
	}

	prepareCommand(t, findingsShowCmd, &buf, map[string]string{"test-case": "6"})
	if err := findingsShowCmd.RunE(findingsShowCmd, nil); !errors.Is(err, sharedErrors.ErrTestCaseNotFound) {
		t.Fatalf("expected ErrTestCaseNotFound, got %v", err)
	}
	prepareCommand(t, findingsShowCmd, &buf, map[string]string{"test-case": "5", "vuln": "9"})
	if err := findingsShowCmd.RunE(findingsShowCmd, nil); err == nil {
		t.Fatal("expected an error when both ids are given")
	}

	buf.Reset()
	prepareCommand(t, findingsRunCmd, &buf, map[string]string{"test-case": "5", "progress": "false"})
	if err := findingsRunCmd.RunE(findingsRunCmd, nil); err != nil {
		t.Fatalf("findings run failed: %v", err)
	}
	if !strings.Contains(buf.String(), "1 vulnerabilities found!") || !strings.Contains(buf.String(), "failed") {
		t.Fatalf("unexpected run output:\n%s", buf.String())
	}
	if backend.testRunCount() != 1 {
		t.Fatalf("expected one run, got %d", backend.testRunCount())
	}

	prepareCommand(t, findingsRunCmd, &buf, nil)
	if err := findingsRunCmd.RunE(findingsRunCmd, nil); err == nil || !strings.Contains(err.Error(), "--test-case is required") {
		t.Fatalf("expected missing id error, got %v", err)
	}
}

func TestResolveOutputPrefersFlag(t *testing.T) {
	appCtx, restore := setupTestAppContext(t, "")
	defer restore()
	appCtx.Config.Defaults.Output = "yaml"

	var buf bytes.Buffer
	prepareCommand(t, orgListCmd, &buf, nil)
	if got, err := resolveOutput(orgListCmd); err != nil || got != outputYAML {
		t.Fatalf("expected configured yaml, got %q (%v)", got, err)
	}

	prepareCommand(t, orgListCmd, &buf, map[string]string{"output": "json"})
	if got, err := resolveOutput(orgListCmd); err != nil || got != outputJSON {
		t.Fatalf("expected flag json, got %q (%v)", got, err)
	}
}
