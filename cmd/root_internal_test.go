package cmd

import (
	"context"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

func TestStoreAndGetAppContext(t *testing.T) {
	original := globalAppContext
	defer func() {
		globalAppContext = original
	}()

	cmd := &cobra.Command{Use: "root"}
	appCtx := &AppContext{Operator: "tester"}

	storeAppContext(cmd, appCtx)

	got := getAppContext(cmd)
	if got != appCtx {
		t.Fatalf("expected stored app context to be returned")
	}

	// commands without the context value fall back to the global one
	other := &cobra.Command{Use: "other"}
	other.SetContext(context.Background())
	if getAppContext(other) != appCtx {
		t.Fatalf("expected global app context fallback")
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(false, "error")
	if err != nil {
		t.Fatalf("newLogger failed: %v", err)
	}
	if logger.Core().Enabled(zapcore.WarnLevel) {
		t.Fatal("warn should be disabled at error level")
	}
	if !logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatal("error should be enabled at error level")
	}

	dev, err := newLogger(true, "error")
	if err != nil {
		t.Fatalf("newLogger failed: %v", err)
	}
	if !dev.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("debug logger should enable debug level")
	}

	if _, err := newLogger(false, "loud"); err == nil {
		t.Fatal("expected invalid level to fail")
	}
}

func TestAppContextLoggerIsNilSafe(t *testing.T) {
	var appCtx *AppContext
	if appCtx.logger() == nil {
		t.Fatal("expected a no-op logger")
	}
}

func TestAppContextServicesRejectsBadAssessmentType(t *testing.T) {
	appCtx, restore := setupTestAppContext(t, "")
	defer restore()
	appCtx.Config.Defaults.AssessmentType = "audit"

	if _, err := appCtx.services(context.Background()); err == nil {
		t.Fatal("expected invalid default assessment type to fail")
	}
}

func TestRootRegistersCommands(t *testing.T) {
	want := []string{"login", "logout", "org", "findings", "assess", "tui", "serve", "info", "version"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected %q to be registered on the root command", name)
		}
	}
}
