package calc

import (
	"math"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw    string
		want   float64
		wantOK bool
	}{
		{"2", 2, true},
		{"10.5", 10.5, true},
		{" 3 ", 3, true},
		{".5", 0.5, true},
		{"5.", 5, true},
		{"+4", 4, true},
		{"1e3", 1000, true},
		{"2.5E-1", 0.25, true},
		{"-0", 0, true},
		{"", 0, false},
		{"   ", 0, false},
		{"abc", 0, false},
		{"2abc", 0, false},
		{"1,000", 0, false},
		{"1_000", 0, false},
		{"0x10", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"1e999", 0, false},
		{"-5", 0, false},
		{".", 0, false},
		{"1e", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseAmount(tt.raw)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseAmount(%q) = (%v, %v), want (%v, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseAmount_NegativeZeroNormalised(t *testing.T) {
	v, ok := ParseAmount("-0.0")
	if !ok {
		t.Fatal("-0.0 should parse")
	}
	if math.Signbit(v) {
		t.Error("expected positive zero")
	}
}

func TestLineTotal(t *testing.T) {
	tests := []struct {
		quantity, price string
		want            float64
	}{
		{"2", "10", 20},
		{"abc", "5", 0},
		{"5", "abc", 0},
		{"", "5", 0},
		{"3", "", 0},
		{"-2", "10", 0},
		{"0.5", "3", 1.5},
		{"1e200", "1e200", 0},
	}
	for _, tt := range tests {
		got := LineTotal(tt.quantity, tt.price)
		if got != tt.want {
			t.Errorf("LineTotal(%q, %q) = %v, want %v", tt.quantity, tt.price, got, tt.want)
		}
		if got < 0 {
			t.Errorf("LineTotal(%q, %q) is negative", tt.quantity, tt.price)
		}
	}
}

func TestSum(t *testing.T) {
	if got := Sum(); got != 0 {
		t.Errorf("Sum() = %v", got)
	}
	a, b, c := 0.1, 0.2, 0.3
	if got := Sum(a, b, c); got != (a+b)+c {
		t.Errorf("Sum(0.1, 0.2, 0.3) = %v, want left-to-right %v", got, (a+b)+c)
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{0, "0.00"},
		{20, "20.00"},
		{1.5, "1.50"},
		{0.125, "0.13"},
		{0.375, "0.38"},
		{1.005, "1.00"},
		{2.675, "2.67"},
		{1234567.891, "1234567.89"},
		{-0.125, "-0.13"},
		{math.NaN(), "0.00"},
		{math.Inf(1), "0.00"},
	}
	for _, tt := range tests {
		if got := FormatMoney(tt.v); got != tt.want {
			t.Errorf("FormatMoney(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestFormatQuantity(t *testing.T) {
	if got := FormatQuantity(""); got != "0" {
		t.Errorf("empty quantity = %q, want 0", got)
	}
	if got := FormatQuantity("abc"); got != "abc" {
		t.Errorf("quantity = %q, want raw text", got)
	}
}

func TestFormatPrice(t *testing.T) {
	if got := FormatPrice("10"); got != "10.00" {
		t.Errorf("FormatPrice(10) = %q", got)
	}
	if got := FormatPrice("abc"); got != "0.00" {
		t.Errorf("FormatPrice(abc) = %q", got)
	}
	if got := FormatPrice(""); got != "0.00" {
		t.Errorf("FormatPrice(empty) = %q", got)
	}
}
