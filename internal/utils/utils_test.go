package utils

import (
	"regexp"
	"testing"
	"time"
)

func TestFold(t *testing.T) {
	cases := map[string]string{
		"Thiès":         "thies",
		"  SAINT-LOUIS": "saint-louis",
		"Ziguinchor":    "ziguinchor",
		"Kédougou":      "kedougou",
	}
	for in, want := range cases {
		if got := Fold(in); got != want {
			t.Fatalf("Fold(%q): expected %q got %q", in, want, got)
		}
	}
}

func TestMatchesPlace(t *testing.T) {
	cases := []struct {
		place, term string
		want        bool
	}{
		{"Thiès", "THIES", true},
		{"Dakar Plateau", "Plateau", true},
		{"Dakar Plateau", "dakar pla", true},
		{"Gare routière de Thiès", "routiere", true},
		{"Saint-Denis", "Saint-Louis", false},
		{"Dakar Plateau", "dakar, gare routière", false},
		{"Mbour", "Thiès", false},
		{"Mbour", "   ", true},
	}
	for _, tc := range cases {
		if got := MatchesPlace(tc.place, tc.term); got != tc.want {
			t.Errorf("MatchesPlace(%q, %q) = %v, want %v", tc.place, tc.term, got, tc.want)
		}
	}
}

func TestPaymentReference(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	ref, err := PaymentReference(now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !regexp.MustCompile(`^PAY-1700000000123-[A-Z0-9]{9}$`).MatchString(ref) {
		t.Fatalf("unexpected reference format %q", ref)
	}
}

func TestResetToken(t *testing.T) {
	a, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := GenerateResetToken()
	if len(a) != 40 || a == b {
		t.Fatalf("expected distinct 40-char tokens, got %q and %q", a, b)
	}
	if HashToken(a) == a || HashToken(a) != HashToken(a) || len(HashToken(a)) != 64 {
		t.Fatal("hash must be a stable 64-char digest")
	}
}
