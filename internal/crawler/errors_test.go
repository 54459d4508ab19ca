package crawler

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorMatching(t *testing.T) {
	err := fmt.Errorf("page 3: %w", NewError(ErrCodeDetail, "scrape", ErrNoSurface).WithDetail("case", "x"))

	if !errors.Is(err, DetailError) {
		t.Error("errors.Is(err, DetailError) = false")
	}
	if errors.Is(err, PaginationError) {
		t.Error("errors.Is(err, PaginationError) = true")
	}
	if !errors.Is(err, ErrNoSurface) {
		t.Error("underlying sentinel not reachable")
	}

	var e *Error
	if !errors.As(err, &e) || e.Details["case"] != "x" {
		t.Errorf("errors.As() = %v, details = %v", e, e.Details)
	}
}

func TestNewSurfaceError(t *testing.T) {
	if err := NewSurfaceError("navigate", context.DeadlineExceeded); err.Code != ErrCodeTimeout {
		t.Errorf("Code = %s, want %s", err.Code, ErrCodeTimeout)
	}

	err := NewSurfaceError("click", errors.New("target closed"))
	if err.Code != ErrCodeSurface {
		t.Errorf("Code = %s, want %s", err.Code, ErrCodeSurface)
	}
	if !IsSurfaceFailure(fmt.Errorf("wrapped: %w", err)) {
		t.Error("IsSurfaceFailure() = false")
	}
	if IsSurfaceFailure(NewError(ErrCodePagination, "x", ErrNoMorePages)) {
		t.Error("pagination error reported as surface failure")
	}
}
