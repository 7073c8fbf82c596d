// Package core provides the budget revision domain model.
//
// This file contains the arithmetic shared by every layer: line amounts,
// thousand-rounding and differences, plus permissive number parsing for
// spreadsheet and form input.
package core

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var thousand = decimal.NewFromInt(1000)

// Amount returns volume × unitPrice without rounding.
func Amount(volume, unitPrice decimal.Decimal) decimal.Decimal {
	return volume.Mul(unitPrice)
}

// Round1000 rounds x to the nearest multiple of 1000, halves away from zero.
//
// Examples:
//
//	Round1000(1_499) -> 1_000
//	Round1000(1_500) -> 2_000
//	Round1000(-1_500) -> -2_000
func Round1000(x decimal.Decimal) int64 {
	return x.Div(thousand).Round(0).Mul(thousand).IntPart()
}

// Round1000Int is Round1000 for integer rupiah values.
func Round1000Int(x int64) int64 {
	return Round1000(decimal.NewFromInt(x))
}

// Difference returns b − a.
func Difference(a, b int64) int64 {
	return b - a
}

// ParseNumber converts a loosely formatted number into a decimal.
//
// It strips a leading "Rp", whitespace and thousands separators, and accepts
// either a decimal comma or a decimal point. When both separators appear the
// right-most one is the decimal separator; a separator repeated more than
// once is a thousands separator, and so is a lone dot followed by exactly
// three digits.
//
// Examples:
//
//	ParseNumber("1.200.000")    -> 1200000
//	ParseNumber("Rp 1.200.000,50") -> 1200000.5
//	ParseNumber("1,200,000.50") -> 1200000.5
//	ParseNumber("50.000")       -> 50000
//	ParseNumber("2,5")          -> 2.5
func ParseNumber(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.EqualFold(s[:2], "rp") {
		s = s[2:]
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero, ErrInvalidNumber
	}

	dots := strings.Count(s, ".")
	commas := strings.Count(s, ",")
	switch {
	case dots > 0 && commas > 0:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case commas > 1:
		s = strings.ReplaceAll(s, ",", "")
	case commas == 1:
		s = strings.Replace(s, ",", ".", 1)
	case dots > 1:
		s = strings.ReplaceAll(s, ".", "")
	case dots == 1 && len(s)-strings.Index(s, ".") == 4:
		// "50.000" is Indonesian grouping, not fifty.
		s = strings.Replace(s, ".", "", 1)
	}

	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidNumber
	}
	for i, r := range s {
		if r == '-' && i == 0 {
			continue
		}
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidNumber
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidNumber
	}
	return d, nil
}

// FormatRupiah formats an amount with Indonesian thousands separators,
// e.g. "Rp 1.200.000" or "-Rp 500.000".
func FormatRupiah(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-Rp " + b.String()
	}
	return "Rp " + b.String()
}
