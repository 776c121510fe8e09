package cmd

import (
	"bytes"
	"runtime"
	"strings"
	"testing"
)

func TestInfoCommand(t *testing.T) {
	appCtx, restore := setupTestAppContext(t, "http://127.0.0.1:5999")
	defer restore()

	var buf bytes.Buffer
	prepareCommand(t, infoCmd, &buf, nil)

	if err := infoCmd.RunE(infoCmd, []string{}); err != nil {
		t.Fatalf("info command failed: %v", err)
	}

	output := buf.String()
	expectedSections := []string{
		"SHIELD CLI System Information",
		"Platform:",
		"Operator:          test-operator",
		"API URL:            http://127.0.0.1:5999",
		"Data Directory:     " + appCtx.DataDir,
		"Session File:",
		"(not logged in)",
		"Configuration File:",
	}
	for _, section := range expectedSections {
		if !strings.Contains(output, section) {
			t.Errorf("Expected output to contain '%s', got:\n%s", section, output)
		}
	}

	expectedPlatform := runtime.GOOS + "/" + runtime.GOARCH
	if !strings.Contains(output, expectedPlatform) {
		t.Errorf("Expected platform '%s' in output, got:\n%s", expectedPlatform, output)
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	prepareCommand(t, versionCmd, &buf, nil)
	versionCmd.Run(versionCmd, nil)
	if got := buf.String(); got != "SHIELD CLI version "+Version+"\n" {
		t.Fatalf("unexpected version output: %q", got)
	}

	buf.Reset()
	prepareCommand(t, versionCmd, &buf, map[string]string{"verbose": "true"})
	versionCmd.Run(versionCmd, nil)
	if !strings.Contains(buf.String(), "Go Version:") {
		t.Fatalf("expected verbose output, got %q", buf.String())
	}
}
