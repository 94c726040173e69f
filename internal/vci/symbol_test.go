package vci

import (
	"errors"
	"strings"
	"testing"

	"vciquote/internal/marketdata"
)

func TestResolveSymbol(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"FPT", "FPT"},
		{" fpt ", "FPT"},
		{"VNINDEX", "VNINDEX"},
		{"HNXINDEX", "HNXIndex"},
		{"UPCOMINDEX", "HNXUpcomIndex"},
		{"VN30F2412", "VN30F2412"},
	}
	for _, tc := range cases {
		got, err := ResolveSymbol(tc.raw)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Errorf("%q: got %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestResolveSymbol_UnknownIndexAlias(t *testing.T) {
	_, err := ResolveSymbol("FOOINDEX")
	if !errors.Is(err, marketdata.ErrInvalidSymbol) {
		t.Fatalf("err = %v, want ErrInvalidSymbol", err)
	}
	// the message enumerates every valid alias
	for _, alias := range []string{"VNINDEX", "HNXINDEX", "UPCOMINDEX"} {
		if !strings.Contains(err.Error(), alias) {
			t.Errorf("error %q does not mention %s", err, alias)
		}
	}
}

func TestResolveSymbol_Empty(t *testing.T) {
	if _, err := ResolveSymbol("  "); !errors.Is(err, marketdata.ErrInvalidSymbol) {
		t.Fatalf("err = %v, want ErrInvalidSymbol", err)
	}
}

func TestAssetTypeOf(t *testing.T) {
	cases := map[string]string{
		"VNINDEX":       "index",
		"HNXIndex":      "index",
		"HNXUpcomIndex": "index",
		"VN30F2412":     "derivative",
		"FPT":           "stock",
		"VCB":           "stock",
	}
	for symbol, want := range cases {
		if got := AssetTypeOf(symbol); got != want {
			t.Errorf("%s: got %q, want %q", symbol, got, want)
		}
	}
}
