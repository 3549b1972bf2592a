// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package boolean

import (
	"errors"
	"fmt"
)

var (
	// ErrTrivialCiphertext is returned when an operation needs the raw LWE
	// vector of a trivial placeholder ciphertext.
	ErrTrivialCiphertext = errors.New("boolean: trivial ciphertext has no LWE vector")
	// ErrDimensionMismatch is returned when two raw vectors differ in length.
	ErrDimensionMismatch = errors.New("boolean: LWE dimension mismatch")
)

// Ciphertext represents an encrypted bit. It is either a trivial
// placeholder carrying a cleartext boolean, or an LWE sample laid out as
// a_0..a_{n-1}, b with b = <a, s> + m + e.
type Ciphertext struct {
	trivial bool
	value   bool
	lwe     []uint32
}

// NewTrivialCiphertext returns a placeholder ciphertext for v.
func NewTrivialCiphertext(v bool) *Ciphertext {
	return &Ciphertext{trivial: true, value: v}
}

// NewCiphertextFromRaw wraps a raw LWE vector. The ciphertext takes
// ownership of raw.
func NewCiphertextFromRaw(raw []uint32) *Ciphertext {
	return &Ciphertext{lwe: raw}
}

// IsTrivial reports whether ct is a placeholder.
func (ct *Ciphertext) IsTrivial() bool {
	return ct.trivial
}

// Raw returns the LWE vector of an encrypted ciphertext. The returned
// slice is shared with ct and must not be modified.
func (ct *Ciphertext) Raw() ([]uint32, error) {
	if ct == nil || ct.trivial {
		return nil, ErrTrivialCiphertext
	}
	return ct.lwe, nil
}

// CopyNew returns a deep copy of ct.
func (ct *Ciphertext) CopyNew() *Ciphertext {
	out := &Ciphertext{trivial: ct.trivial, value: ct.value}
	if ct.lwe != nil {
		out.lwe = append([]uint32(nil), ct.lwe...)
	}
	return out
}

// AddRaw sets dst = a + b modulo 2^32. dst may alias a or b.
func AddRaw(dst, a, b []uint32) error {
	if len(a) != len(b) || len(dst) != len(a) {
		return fmt.Errorf("%w: %d, %d, %d", ErrDimensionMismatch, len(dst), len(a), len(b))
	}
	for i := range dst {
		dst[i] = a[i] + b[i]
	}
	return nil
}

// Add returns the sum of two encrypted ciphertexts.
func Add(ct1, ct2 *Ciphertext) (*Ciphertext, error) {
	a, err := ct1.Raw()
	if err != nil {
		return nil, err
	}
	b, err := ct2.Raw()
	if err != nil {
		return nil, err
	}
	out := make([]uint32, len(a))
	if err := AddRaw(out, a, b); err != nil {
		return nil, err
	}
	return NewCiphertextFromRaw(out), nil
}

// scaleAddConst returns k*raw + c on the body.
func scaleAddConst(raw []uint32, k, c uint32) []uint32 {
	out := make([]uint32, len(raw))
	for i, v := range raw {
		out[i] = k * v
	}
	out[len(out)-1] += c
	return out
}
