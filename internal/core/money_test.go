package core

import "testing"

func TestParseDecimalToSatang(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "simple decimal", input: "12.34", want: 1234},
		{name: "comma separator", input: "12,34", want: 1234},
		{name: "integer", input: "200", want: 20000},
		{name: "rounds down on third decimal", input: "12.344", want: 1234},
		{name: "rounds up on third decimal", input: "12.345", want: 1235},
		{name: "leading dot", input: ".50", want: 50},
		{name: "whitespace trimmed", input: "  7.00 ", want: 700},
		{name: "empty", input: "", wantErr: true},
		{name: "negative rejected", input: "-5", wantErr: true},
		{name: "plus sign rejected", input: "+5", wantErr: true},
		{name: "zero rejected", input: "0", wantErr: true},
		{name: "zero decimal rejected", input: "0.00", wantErr: true},
		{name: "letters rejected", input: "12a.3", wantErr: true},
		{name: "double dot rejected", input: "1.2.3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimalToSatang(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDecimalToSatang(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseDecimalToSatang(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMoneyFromBaht(t *testing.T) {
	tests := []struct {
		name string
		baht float64
		want int64
	}{
		{name: "whole baht", baht: 200, want: 20000},
		{name: "two decimals", baht: 12.34, want: 1234},
		{name: "float noise rounds cleanly", baht: 0.1 + 0.2, want: 30},
		{name: "negative", baht: -1.5, want: -150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MoneyFromBaht(tt.baht).Satang; got != tt.want {
				t.Errorf("MoneyFromBaht(%v) = %d, want %d", tt.baht, got, tt.want)
			}
		})
	}
}

func TestFormatBaht(t *testing.T) {
	tests := []struct {
		satang int64
		want   string
	}{
		{satang: 1234, want: "฿12.34"},
		{satang: 20000, want: "฿200.00"},
		{satang: 123456789, want: "฿1,234,567.89"},
		{satang: -150, want: "-฿1.50"},
		{satang: 0, want: "฿0.00"},
	}

	for _, tt := range tests {
		if got := FormatBaht(tt.satang); got != tt.want {
			t.Errorf("FormatBaht(%d) = %q, want %q", tt.satang, got, tt.want)
		}
	}
}
