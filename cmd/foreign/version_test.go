package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func runVersion(t *testing.T, json, full bool) string {
	t.Helper()
	versionJSON, versionFull = json, full
	defer func() { versionJSON, versionFull = false, false }()

	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	defer versionCmd.SetOut(nil)
	if err := versionCmd.RunE(versionCmd, nil); err != nil {
		t.Fatalf("version: %v", err)
	}
	return buf.String()
}

func TestVersionPlainOutput(t *testing.T) {
	out := runVersion(t, false, false)
	if !strings.HasPrefix(out, "foreign ") {
		t.Fatalf("output %q does not start with the tool name", out)
	}
	if !strings.Contains(out, versionTagline) {
		t.Fatalf("output %q misses the tagline", out)
	}
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("plain output should be a single line, got %q", out)
	}
}

func TestVersionJSONOutput(t *testing.T) {
	out := runVersion(t, true, true)
	var payload map[string]string
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("unmarshal %q: %v", out, err)
	}
	if payload["tool"] != "foreign" {
		t.Errorf("tool = %q, want %q", payload["tool"], "foreign")
	}
	if payload["version"] == "" {
		t.Error("version field empty")
	}
}
