package config

import (
	"testing"
	"time"
)

func TestTypedGetters(t *testing.T) {
	t.Setenv("CFG_INT", "42")
	t.Setenv("CFG_BAD_INT", "forty")
	t.Setenv("CFG_BOOL", "true")
	t.Setenv("CFG_DUR", "90s")
	t.Setenv("CFG_DUR_SECS", "30")
	t.Setenv("CFG_LIST", " a, ,b ")

	if got := Int("CFG_INT", 1); got != 42 {
		t.Fatalf("Int: got %d", got)
	}
	if got := Int("CFG_BAD_INT", 7); got != 7 {
		t.Fatalf("Int fallback: got %d", got)
	}
	if !Bool("CFG_BOOL", false) {
		t.Fatal("Bool: expected true")
	}
	if got := Duration("CFG_DUR", 0); got != 90*time.Second {
		t.Fatalf("Duration: got %s", got)
	}
	if got := Duration("CFG_DUR_SECS", 0); got != 30*time.Second {
		t.Fatalf("Duration seconds: got %s", got)
	}
	if got := List("CFG_LIST", nil); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("List: got %v", got)
	}
}

func TestPortValidation(t *testing.T) {
	t.Setenv("CFG_PORT", "99999")
	if _, err := Port("CFG_PORT", "8000"); err == nil {
		t.Fatal("expected invalid port error")
	}
	if _, err := RequiredString("CFG_MISSING_VALUE"); err == nil {
		t.Fatal("expected required error")
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	if err := LoadDotEnv(t.TempDir() + "/does-not-exist.env"); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}
}
