package data

import (
	"errors"
	"testing"
)

func TestErrors_Aggregate(t *testing.T) {
	errs := Errors{}
	if err := errs.Errors(); err != nil {
		t.Fatalf("Expected no error from empty collector, got %v", err)
	}

	first := errors.New("first")
	second := errors.New("second")
	errs.Add(nil)
	errs.Add(first)
	errs.Add(nil)
	errs.Add(second)

	err := errs.Errors()
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Errorf("Expected joined error to contain both causes, got %v", err)
	}
}

func TestStoreError_Is(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewStoreError("upsert study", cause)

	if !errors.Is(err, ErrStore) {
		t.Error("Expected StoreError to match ErrStore")
	}
	if !errors.Is(err, cause) {
		t.Error("Expected StoreError to unwrap to its cause")
	}
	if errors.Is(err, ErrNotExist) {
		t.Error("Expected StoreError not to match ErrNotExist")
	}
}
