package gateways

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"live", ModeLive},
		{"LIVE", ModeLive},
		{"sim", ModeSim},
		{"SIM", ModeSim},
		{"", ModeUnknown},
		{"prod", ModeUnknown},
	}
	for _, tt := range tests {
		if got := ParseMode(tt.in); got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFactoryCreatesSimSet(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	set, err := NewFactory().CreateSet(context.Background(), &Config{Mode: ModeSim}, logger)
	if err != nil {
		t.Fatalf("CreateSet: %v", err)
	}
	if set.Ledger == nil || set.Relay == nil || set.Destination == nil {
		t.Error("sim set has a nil gateway")
	}
}

func TestFactoryRejectsUnknownMode(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	if _, err := NewFactory().CreateSet(context.Background(), &Config{Mode: ModeUnknown}, logger); err == nil {
		t.Error("unknown mode accepted")
	}
}
