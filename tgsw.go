// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package ohlg

import (
	"fmt"

	"github.com/luxfi/ohlg/boolean"
)

// ZeroEncryptor produces fresh encryptions of 0. *boolean.Encryptor
// implements it.
type ZeroEncryptor interface {
	EncryptZero() *boolean.Ciphertext
}

// Context carries the parameters and gadget cache shared by coefficient
// encryption and external products. It is safe for concurrent use.
type Context struct {
	params  Parameters
	gadgets *GadgetCache
}

// NewContext returns a context for params. A nil cache gives the context
// its own.
func NewContext(params Parameters, cache *GadgetCache) (*Context, error) {
	if err := params.gadget.Validate(); err != nil {
		return nil, err
	}
	if params.gadget.LWEDimension != params.scheme.LWEDimension() || params.gadget.Q != params.scheme.Q() {
		return nil, fmt.Errorf("%w: gadget %+v for scheme dimension %d", ErrParameterMismatch, params.gadget, params.scheme.LWEDimension())
	}
	if cache == nil {
		cache = NewGadgetCache()
	}
	return &Context{params: params, gadgets: cache}, nil
}

// Params returns the context parameters.
func (c *Context) Params() Parameters {
	return c.params
}

// Gadget returns the cached gadget matrix of the context.
func (c *Context) Gadget() *GadgetMatrix {
	gt, err := c.gadgets.Get(c.params.gadget)
	if err != nil {
		panic(err) // parameters were validated by NewContext
	}
	return gt
}

// CoefficientCiphertext is a TGSW-style encryption of a small integer m:
// Z + m*GT, where every row of Z is a fresh LWE encryption of 0.
// It is immutable after construction.
type CoefficientCiphertext struct {
	params GadgetParameters
	data   []uint32
}

// Params returns the gadget parameters the ciphertext was built for.
func (ct *CoefficientCiphertext) Params() GadgetParameters {
	return ct.params
}

// Row returns row i. The slice is shared and must not be modified.
func (ct *CoefficientCiphertext) Row(i int) []uint32 {
	cols := ct.params.Cols()
	return ct.data[i*cols : (i+1)*cols]
}

// EncryptCoefficient encrypts m, drawing exactly l(n+1) encryptions of 0
// from zeros.
func (c *Context) EncryptCoefficient(m uint32, zeros ZeroEncryptor) (*CoefficientCiphertext, error) {
	gt := c.Gadget()
	p := c.params.gadget
	rows, cols := p.Rows(), p.Cols()

	ct := &CoefficientCiphertext{params: p, data: make([]uint32, rows*cols)}
	for i := 0; i < rows; i++ {
		zero, err := zeros.EncryptZero().Raw()
		if err != nil {
			return nil, fmt.Errorf("encrypt coefficient: %w", err)
		}
		if len(zero) != cols {
			return nil, fmt.Errorf("encrypt coefficient: %w: zero encryption has %d entries, want %d", ErrParameterMismatch, len(zero), cols)
		}
		row := ct.data[i*cols : (i+1)*cols]
		g := gt.Row(i)
		for j := range row {
			row[j] = zero[j] + m*g[j]
		}
	}
	return ct, nil
}
