// Package core holds the domain model and the pure reconciliation and
// summary calculations over a hydrated DataBundle snapshot.
//
// This file contains money parsing and handling. Amounts are kept as
// int64 satang (1/100 baht) so that summation never accumulates
// floating-point drift; conversion to and from decimal baht happens only
// at the edges (ingestion and display).
package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Money is a currency amount in satang.
type Money struct {
	Satang int64
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	return Money{Satang: m.Satang + o.Satang}
}

// Sub returns m minus o. The result may be negative.
func (m Money) Sub(o Money) Money {
	return Money{Satang: m.Satang - o.Satang}
}

// Baht returns the baht value as a float64 for display and JSON output.
// Calculations stay in satang.
func (m Money) Baht() float64 {
	return float64(m.Satang) / 100.0
}

func (m Money) Validate() error {
	if m.Satang <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// MoneyFromBaht converts a decimal baht value (as stored by the remote
// store) to satang, rounding half away from zero on the third decimal.
func MoneyFromBaht(baht float64) Money {
	return Money{Satang: int64(math.Round(baht * 100))}
}

// ParseDecimalToSatang converts a decimal string to satang with half-up
// rounding on the third decimal place. Both dot and comma separators are
// accepted. Only positive amounts are valid.
//
// Examples:
//
//	ParseDecimalToSatang("12.34") -> 1234, nil
//	ParseDecimalToSatang("12,345") -> 1235, nil (rounds up)
func ParseDecimalToSatang(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	var fracSatang int64
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracSatang = d1 * 10
		if len(fracPart) > 1 {
			d2 := int64(fracPart[1] - '0')
			fracSatang += d2
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracSatang++
			}
		}
	}
	satang := iv*100 + fracSatang
	if satang <= 0 {
		return 0, ErrInvalidAmount
	}
	return satang, nil
}

// FormatBaht formats satang as a baht currency string, e.g. "฿1,234.50".
func FormatBaht(satang int64) string {
	neg := satang < 0
	if neg {
		satang = -satang
	}
	baht := satang / 100
	rem := satang % 100
	s := groupThousands(baht) + "." + fmt.Sprintf("%02d", rem)
	if neg {
		return "-฿" + s
	}
	return "฿" + s
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
