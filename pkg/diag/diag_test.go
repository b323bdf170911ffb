package diag

import (
	"errors"
	"strings"
	"testing"
)

func TestBadImageReturnsZero(t *testing.T) {
	var d Diagnostics
	got := BadImage[*int](&d, "leaf %08X is broken", 0x1001)
	if got != nil {
		t.Fatalf("fallback = %v, want nil", got)
	}
	if d.Len() != 1 {
		t.Fatalf("collected %d reports", d.Len())
	}
	err := d.Errors()[0]
	if !errors.Is(err, ErrBadImage) {
		t.Errorf("report does not wrap ErrBadImage: %v", err)
	}
	if !strings.Contains(err.Error(), "00001001") {
		t.Errorf("report = %q", err)
	}
	if !errors.Is(d.Err(), ErrBadImage) {
		t.Errorf("Err() = %v", d.Err())
	}
}

func TestNilListener(t *testing.T) {
	if got := BadImage[int](nil, "nothing"); got != 0 {
		t.Fatalf("got %d", got)
	}
	var d Diagnostics
	if d.Err() != nil {
		t.Fatalf("empty diagnostics should have nil Err")
	}
}

func TestTee(t *testing.T) {
	var a, b Diagnostics
	BadImage[string](Tee{&a, nil, &b, Discard}, "x")
	if a.Len() != 1 || b.Len() != 1 {
		t.Fatalf("tee delivered %d and %d", a.Len(), b.Len())
	}
}

func TestLogListener(t *testing.T) {
	l := NewLogListener("gometa.test")
	BadImage[int](l, "logged")
}

func TestStrictKeepsFirst(t *testing.T) {
	var s Strict
	BadImage[int](&s, "first")
	BadImage[int](&s, "second")
	if s.Err() == nil || !strings.Contains(s.Err().Error(), "first") {
		t.Fatalf("Err = %v", s.Err())
	}
}
