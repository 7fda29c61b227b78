package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			if result := test.class.String(); result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"not connected", ErrNotConnected, true},
		{"connection lost", ErrConnectionLost, true},
		{"link closed", ErrLinkClosed, true},
		{"dial failed", ErrDialFailed, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"missing parameter", ErrMissingParameter, false},
		{"invalid config", ErrInvalidConfig, false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"network error", fmt.Errorf("network unreachable"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if result := IsTransient(test.err); result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"missing parameter", ErrMissingParameter, true},
		{"invalid node id", ErrInvalidNodeID, true},
		{"not found", ErrNotFound, true},
		{"malformed frame", ErrMalformedFrame, true},
		{"not connected", ErrNotConnected, false},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("test")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if result := IsInvalid(test.err); result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(ErrInvalidConfig) {
		t.Error("expected invalid config to be fatal")
	}
	if !IsFatal(ErrMissingConfig) {
		t.Error("expected missing config to be fatal")
	}
	if IsFatal(ErrNotConnected) {
		t.Error("expected not connected to be non-fatal")
	}
	if IsFatal(nil) {
		t.Error("expected nil to be non-fatal")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil defaults transient", nil, ErrorTransient},
		{"invalid node id", ErrInvalidNodeID, ErrorInvalid},
		{"invalid config", ErrInvalidConfig, ErrorFatal},
		{"unknown defaults transient", fmt.Errorf("something odd"), ErrorTransient},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if result := Classify(test.err); result != test.expected {
				t.Errorf("expected %v, got %v", test.expected, result)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	base := fmt.Errorf("boom")

	err := Wrap(base, "Manager", "Run", "dial radio")
	if err == nil {
		t.Fatal("expected non-nil error")
	}
	if !strings.Contains(err.Error(), "Manager.Run: dial radio failed") {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if !errors.Is(err, base) {
		t.Error("expected wrapped error to match base via errors.Is")
	}

	if Wrap(nil, "Manager", "Run", "dial radio") != nil {
		t.Error("expected nil for nil input")
	}
}

func TestWrapClassified(t *testing.T) {
	base := ErrInvalidNodeID

	err := WrapInvalid(base, "Service", "SendMessage", "resolve target")
	if !IsInvalid(err) {
		t.Error("expected invalid classification")
	}
	if !errors.Is(err, ErrInvalidNodeID) {
		t.Error("expected sentinel to survive wrapping")
	}

	terr := WrapTransient(fmt.Errorf("boom"), "Manager", "Send", "deliver")
	if !IsTransient(terr) {
		t.Error("expected transient classification")
	}

	ferr := WrapFatal(fmt.Errorf("boom"), "Server", "Start", "bind")
	if !IsFatal(ferr) {
		t.Error("expected fatal classification")
	}

	var ce *ClassifiedError
	if !errors.As(err, &ce) {
		t.Fatal("expected ClassifiedError in chain")
	}
	if ce.Component != "Service" || ce.Operation != "SendMessage" {
		t.Errorf("unexpected context: %s.%s", ce.Component, ce.Operation)
	}
}
