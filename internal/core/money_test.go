package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0", "0", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"+1", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1,2,3", "", false},
		{"1,000.50", "", false},
		{"1e3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(dec(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestLenientAmount(t *testing.T) {
	cases := map[string]string{
		"12.5":  "12.5",
		" 3 ":   "3",
		"oops":  "0",
		"":      "0",
		"-4.25": "-4.25",
	}
	for in, want := range cases {
		if got := LenientAmount(in); !got.Equal(dec(want)) {
			t.Errorf("LenientAmount(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestLineTotal(t *testing.T) {
	if got := LineTotal(dec("2.35"), 3); !got.Equal(dec("7.05")) {
		t.Fatalf("LineTotal = %s, want 7.05", got)
	}
}
