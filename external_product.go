// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package ohlg

import (
	"fmt"

	"github.com/luxfi/ohlg/boolean"
)

// Accumulator is the un-bootstrapped output of an external product. It has
// no decryption path: the only ways out are AddBit and a gate bootstrap.
type Accumulator struct {
	params GadgetParameters
	raw    []uint32
}

// AddBit folds an encrypted additive term into the accumulator.
func (acc *Accumulator) AddBit(ct *boolean.Ciphertext) error {
	raw, err := ct.Raw()
	if err != nil {
		return fmt.Errorf("accumulate: %w", err)
	}
	if err := boolean.AddRaw(acc.raw, acc.raw, raw); err != nil {
		return fmt.Errorf("accumulate: %w", ErrParameterMismatch)
	}
	return nil
}

// rescale maps a coefficient of Z/q to round(v * B^l / q). The result is
// truncated to 32 bits, so a value that rounds up to B^l = q wraps to 0.
func rescale(v uint32, bl uint64) uint32 {
	return uint32((uint64(v)*bl + boolean.Modulus/2) >> boolean.LogModulus)
}

// ExternalProduct multiplies the coefficient encrypted in ct by the message
// of bit. Entries of bit are rescaled to [0, B^l], decomposed into l(n+1)
// base-B digits and combined with the rows of ct.
func (c *Context) ExternalProduct(ct *CoefficientCiphertext, bit *boolean.Ciphertext) (*Accumulator, error) {
	raw, err := bit.Raw()
	if err != nil {
		return nil, fmt.Errorf("external product: %w", err)
	}
	p := c.params.gadget
	if ct == nil {
		return nil, fmt.Errorf("external product: %w: missing coefficient ciphertext", ErrParameterMismatch)
	}
	if ct.params != p {
		return nil, fmt.Errorf("external product: %w: ciphertext %+v, context %+v", ErrParameterMismatch, ct.params, p)
	}
	if len(raw) != p.Cols() {
		return nil, fmt.Errorf("external product: %w: bit has %d entries, want %d", ErrParameterMismatch, len(raw), p.Cols())
	}

	bl := p.BaseToLevel()
	scaled := make([]uint32, len(raw))
	for i, v := range raw {
		scaled[i] = rescale(v, bl)
	}
	digits := DecomposeVector(scaled, p.Base, p.Level)

	out := make([]uint32, p.Cols())
	for i, d := range digits {
		if d == 0 {
			continue
		}
		for j, v := range ct.Row(i) {
			out[j] += d * v
		}
	}
	return &Accumulator{params: p, raw: out}, nil
}
