package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestReadBuildInfo(t *testing.T) {
	t.Parallel()

	info := readBuildInfo()
	if info.Version == "" {
		t.Error("Version is empty")
	}
	if info.Commit == "" {
		t.Error("Commit is empty")
	}
	if info.Date == "" {
		t.Error("Date is empty")
	}
	if !strings.HasPrefix(info.GoVersion, "go") {
		t.Errorf("GoVersion = %q", info.GoVersion)
	}
}

func TestShortRevision(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":                 "",
		"abc":              "abc",
		"0123456":          "0123456",
		"0123456789abcdef": "0123456",
	}
	for in, expected := range tests {
		if got := shortRevision(in); got != expected {
			t.Errorf("shortRevision(%q) = %q, expected %q", in, got, expected)
		}
	}
}

func TestNewVersionCmd(t *testing.T) {
	t.Parallel()

	t.Run("prints text", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		cmd := NewVersionCmd()
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"pagegrab version", "commit:", "built:", "go:"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got %q", want, output)
			}
		}
	})

	t.Run("prints JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		cmd := NewVersionCmd()
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"--json"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var info buildInfo
		if err := json.Unmarshal(buf.Bytes(), &info); err != nil {
			t.Fatalf("invalid JSON %q: %v", buf.String(), err)
		}
		if info.Version == "" {
			t.Error("expected version in JSON output")
		}
	})

	t.Run("rejects arguments", func(t *testing.T) {
		t.Parallel()

		cmd := NewVersionCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"extra"})

		if err := cmd.Execute(); err == nil {
			t.Error("expected error for extra argument")
		}
	})
}
