package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSecret_NeverFormatsValue(t *testing.T) {
	s := NewSecret("4444444444444444")

	for _, out := range []string{
		fmt.Sprint(s),
		fmt.Sprintf("%v", s),
		fmt.Sprintf("%+v", struct{ PAN Secret }{s}),
		fmt.Sprintf("%#v", s),
	} {
		if strings.Contains(out, "4444") {
			t.Errorf("formatted output leaked secret: %q", out)
		}
	}

	if s.Reveal() != "4444444444444444" {
		t.Errorf("Reveal returned %q", s.Reveal())
	}
}

func TestSecret_JSON(t *testing.T) {
	var req struct {
		PAN Secret `json:"pan"`
	}
	if err := json.Unmarshal([]byte(`{"pan":"5555555555555555"}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.PAN.Reveal() != "5555555555555555" {
		t.Fatalf("unexpected value %q", req.PAN.Reveal())
	}

	out, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(out), "5555") {
		t.Errorf("marshalled json leaked secret: %s", out)
	}
}

func TestSecret_Zerolog(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	logger.Info().Object("pan", NewSecret("4444444444444444")).Msg("capture")

	if strings.Contains(buf.String(), "4444") {
		t.Errorf("log line leaked secret: %s", buf.String())
	}
}
