// Copyright (c) 2024 Neomantra Corp

package sbe

import (
	"bytes"
	"math"
)

// TrimNullBytes removes trailing nulls from a byte slice and returns a string.
// Fixed char-array fields are NUL-padded on the wire. Only trailing NULs are
// removed; a String field's Value() does not call this, and instead cuts the
// string at its first NUL.
func TrimNullBytes(b []byte) string {
	return string(bytes.TrimRight(b, "\x00"))
}

// decimalFromMantissaExponent computes mantissa * 10^exponent, the value of
// a composite "float" type (a signed mantissa paired with a signed decimal
// exponent, detected by a child named "mantissa" when Field.Value decodes
// the composite).
func decimalFromMantissaExponent(mantissa int64, exponent int8) float64 {
	return float64(mantissa) * math.Pow(10, float64(exponent))
}
