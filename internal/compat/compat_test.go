package compat

import (
	"errors"
	"testing"
)

func TestIsSupported(t *testing.T) {
	cases := []struct {
		version string
		spec    string
		want    bool
	}{
		{"1.8.0", ">=1.8.0,<2.0.0", true},
		{"1.9.5", ">=1.8.0,<2.0.0", true},
		{"2.0.0", ">=1.8.0,<2.0.0", false},
		{"1.7.9", ">=1.8.0,<2.0.0", false},
		{"1.8.0", "==1.8.0", true},
		{"1.8.1", "==1.8.0", false},
		{"1.8.1", ">1.8.0", true},
		{"1.8.0", ">1.8.0", false},
		{"1.8.0", "<=1.8.0", true},
		{"0.9.9", "<1.0.0", true},
		{"10.0.0", ">=9.2.1", true},
		{"1.8.0", "", true},
		{"1.8.0", " >=1.8.0 , <2.0.0 ", true},
	}

	for _, tc := range cases {
		got, err := IsSupported(tc.version, tc.spec)
		if err != nil {
			t.Errorf("IsSupported(%q, %q) returned error: %v", tc.version, tc.spec, err)
			continue
		}
		if got != tc.want {
			t.Errorf("IsSupported(%q, %q) = %v, want %v", tc.version, tc.spec, got, tc.want)
		}
	}
}

func TestIsSupportedMalformed(t *testing.T) {
	cases := []struct {
		version string
		spec    string
	}{
		{"1.8", ">=1.8.0"},
		{"banana", ">=1.8.0"},
		{"1.8.0.1", ">=1.8.0"},
		{"1.8.0", ">=1.8"},
		{"1.8.0", "~1.8.0"},
		{"1.8.0", "1.8.0"},
		{"", ">=1.8.0"},
	}

	for _, tc := range cases {
		if _, err := IsSupported(tc.version, tc.spec); err == nil {
			t.Errorf("IsSupported(%q, %q) expected error", tc.version, tc.spec)
		}
	}
}

func TestAssertSupported(t *testing.T) {
	if err := AssertSupported("1.8.3", ">=1.8.0,<2.0.0"); err != nil {
		t.Fatalf("expected supported version, got %v", err)
	}

	err := AssertSupported("2.1.0", ">=1.8.0,<2.0.0")
	if err == nil {
		t.Fatal("expected error for unsupported version")
	}
	var compatErr *CompatibilityError
	if !errors.As(err, &compatErr) {
		t.Fatalf("expected CompatibilityError, got %T", err)
	}
}
