package services

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapTagsWithMarker(t *testing.T) {
	err := Wrap(ErrInput, "validation", "stat file", "file missing", nil)
	if !errors.Is(err, ErrInput) {
		t.Fatal("marker not preserved")
	}
	if got := err.Error(); got != "input error: validation: stat file: file missing" {
		t.Fatalf("error = %q", got)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(ErrStorage, "uploading", "write", "", cause)
	if !errors.Is(err, cause) {
		t.Fatal("cause not preserved")
	}
	if !errors.Is(err, ErrStorage) {
		t.Fatal("marker not preserved")
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "", "", "boom", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatal("nil marker not defaulted")
	}
}

func TestIsFatal(t *testing.T) {
	if IsFatal(nil) {
		t.Fatal("nil error fatal")
	}
	if IsFatal(Wrap(ErrDegraded, "analysis", "run", "model offline", nil)) {
		t.Fatal("degraded error treated as fatal")
	}
	if !IsFatal(Wrap(ErrInput, "validation", "stat", "", nil)) {
		t.Fatal("input error not fatal")
	}
	if !IsFatal(fmt.Errorf("unclassified")) {
		t.Fatal("plain error not fatal")
	}
}

func TestMessageStripsSentinelPrefix(t *testing.T) {
	err := Wrap(ErrTimeout, "processing", "execute", "stage exceeded hard time ceiling", nil)
	if got := Message(err); got != "processing: execute: stage exceeded hard time ceiling" {
		t.Fatalf("message = %q", got)
	}
	if got := Message(errors.New("raw")); got != "raw" {
		t.Fatalf("message = %q", got)
	}
	if got := Message(nil); got != "" {
		t.Fatalf("message = %q, want empty", got)
	}
}
