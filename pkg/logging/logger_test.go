package logging

import "testing"

func TestNew(t *testing.T) {
	tests := []struct {
		name  string
		level string
	}{
		{"debug level", "debug"},
		{"info level", "info"},
		{"warn level", "warn"},
		{"error level", "error"},
		{"unknown level falls back to info", "verbose"},
		{"empty level falls back to info", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.level)
			if logger == nil {
				t.Fatal("expected logger, got nil")
			}
			if logger.Logger == nil {
				t.Fatal("expected embedded slog logger, got nil")
			}
		})
	}
}

func TestDefault(t *testing.T) {
	logger := Default()
	if logger == nil {
		t.Fatal("expected logger, got nil")
	}
}

func TestWith(t *testing.T) {
	logger := Default().With("session_id", "abc")
	if logger == nil || logger.Logger == nil {
		t.Fatal("expected derived logger")
	}
}
