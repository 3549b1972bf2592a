// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package ohlg

// Decompose returns the level base-B digits of value, most significant
// first. Digits are produced by repeated value mod B, value / B and then
// reversed, so bits above B^level are dropped.
func Decompose(value, base uint32, level int) []uint32 {
	digits := make([]uint32, level)
	decomposeInto(value, base, digits)
	return digits
}

// DecomposeVector concatenates the decompositions of every value.
func DecomposeVector(values []uint32, base uint32, level int) []uint32 {
	digits := make([]uint32, len(values)*level)
	for i, v := range values {
		decomposeInto(v, base, digits[i*level:(i+1)*level])
	}
	return digits
}

func decomposeInto(value, base uint32, digits []uint32) {
	for i := len(digits) - 1; i >= 0; i-- {
		digits[i] = value % base
		value /= base
	}
}
