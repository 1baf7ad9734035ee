package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Format: "json", Output: &buf})

	log.Info().Msg("hidden")
	log.Warn().Str("course", "CS101").Msg("search failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["level"] != "warn" || entry["course"] != "CS101" || entry["message"] != "search failed" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNew_UnknownLevelIsInfo(t *testing.T) {
	log := New(Config{Level: "chatty", Format: "json", Output: &bytes.Buffer{}})
	if log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("level = %v, want info", log.GetLevel())
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer func() { Logger = zerolog.Nop() }()

	log := Component("engine")
	log.Debug().Msg("round started")

	if !strings.Contains(buf.String(), `"component":"engine"`) {
		t.Errorf("output = %q, want a component field", buf.String())
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "console", Output: &buf})
	log.Info().Msg("enrollment loop started")

	if !strings.Contains(buf.String(), "enrollment loop started") {
		t.Errorf("output = %q", buf.String())
	}
	if strings.HasPrefix(buf.String(), "{") {
		t.Error("console format should not emit JSON")
	}
}
