package services_test

import (
	"errors"
	"strings"
	"testing"

	"reprint/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "media", "extract frames", "ffmpeg exited", base)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatal("expected external tool marker")
	}
	if !errors.Is(err, base) {
		t.Fatal("expected underlying error preserved")
	}
	if !strings.Contains(err.Error(), "media: extract frames: ffmpeg exited") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "pipeline", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatal("expected transient marker by default")
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"validation", services.Wrap(services.ErrValidation, "task", "decode", "bad payload", nil), false},
		{"configuration", services.Wrap(services.ErrConfiguration, "store", "open", "", nil), false},
		{"not found", services.Wrap(services.ErrNotFound, "storage", "download", "object gone", nil), false},
		{"external tool", services.Wrap(services.ErrExternalTool, "media", "fpcalc", "", nil), true},
		{"transient", services.Wrap(services.ErrTransient, "storage", "download", "", nil), true},
		{"untagged", errors.New("plain"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.IsRetryable(tc.err); got != tc.want {
				t.Fatalf("IsRetryable = %v, want %v", got, tc.want)
			}
		})
	}
}
