package services_test

import (
	"errors"
	"testing"

	"waxcrate/internal/services"
)

func TestWrapTagsSentinel(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "ingest", "sniff", "declared type conflicts with signature", nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation classification, got %v", err)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := services.Wrap(services.ErrExternal, "vision", "analyze", "request failed", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("expected external classification, got %v", err)
	}
}

func TestWrapNilMarkerDefaultsTransient(t *testing.T) {
	err := services.Wrap(nil, "store", "update", "retry later", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient classification, got %v", err)
	}
}

func TestDetailsStripsSentinelPrefix(t *testing.T) {
	err := services.Wrap(services.ErrMissingFields, "archive", "commit", "artist and album are both empty", nil)
	details := services.Details(err)
	if details.Message != "archive: commit: artist and album are both empty" {
		t.Fatalf("unexpected details message: %q", details.Message)
	}
}

func TestIsCallerError(t *testing.T) {
	cases := []struct {
		marker error
		want   bool
	}{
		{services.ErrValidation, true},
		{services.ErrNotFound, true},
		{services.ErrInvalidTransition, true},
		{services.ErrMissingFields, true},
		{services.ErrTransient, false},
		{services.ErrExternal, false},
	}
	for _, tc := range cases {
		err := services.Wrap(tc.marker, "component", "op", "msg", nil)
		if got := services.IsCallerError(err); got != tc.want {
			t.Fatalf("IsCallerError(%v) = %v, want %v", tc.marker, got, tc.want)
		}
	}
}
