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
			result := test.class.String()
			if result != test.expected {
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
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"invalid data", ErrInvalidData, false},
		{"invalid config", ErrInvalidConfig, false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"unavailable in message", fmt.Errorf("producer temporarily unavailable"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsTransient(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid config", ErrInvalidConfig, true},
		{"missing config", ErrMissingConfig, true},
		{"invalid data", ErrInvalidData, false},
		{"plain error", fmt.Errorf("producer blew up"), false},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsFatal(test.err)
			if result != test.expected {
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
		{"invalid data", ErrInvalidData, true},
		{"not cacheable", ErrNotCacheable, true},
		{"key not found", ErrKeyNotFound, false},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("test")}, true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsInvalid(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil error", nil, ErrorTransient},
		{"transient timeout", fmt.Errorf("request timeout"), ErrorTransient},
		{"invalid config", ErrInvalidConfig, ErrorFatal},
		{"not cacheable", ErrNotCacheable, ErrorInvalid},
		{"unknown error defaults to transient", fmt.Errorf("something odd"), ErrorTransient},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := Classify(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	base := fmt.Errorf("boom")

	err := Wrap(base, "cache", "Set", "store entry")
	if err == nil {
		t.Fatal("expected wrapped error")
	}
	if !strings.Contains(err.Error(), "cache.Set: store entry failed") {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if !errors.Is(err, base) {
		t.Error("wrapped error should unwrap to base")
	}

	if Wrap(nil, "cache", "Set", "store entry") != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestWrapClassified(t *testing.T) {
	base := fmt.Errorf("boom")

	transient := WrapTransient(base, "retry", "Do", "producer call")
	if Classify(transient) != ErrorTransient {
		t.Error("expected transient classification")
	}
	if !errors.Is(transient, base) {
		t.Error("classified error should unwrap to base")
	}

	invalid := WrapInvalid(base, "cachekey", "Key", "canonicalize arguments")
	if Classify(invalid) != ErrorInvalid {
		t.Error("expected invalid classification")
	}

	fatal := WrapFatal(base, "metric", "RegisterCounter", "prometheus registration")
	if Classify(fatal) != ErrorFatal {
		t.Error("expected fatal classification")
	}

	var ce *ClassifiedError
	if !errors.As(fatal, &ce) {
		t.Fatal("expected ClassifiedError")
	}
	if ce.Component != "metric" || ce.Operation != "RegisterCounter" {
		t.Errorf("unexpected component/operation: %s/%s", ce.Component, ce.Operation)
	}

	if WrapTransient(nil, "a", "b", "c") != nil {
		t.Error("wrapping nil should return nil")
	}
}
