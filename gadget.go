// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package ohlg

import (
	"sync"
)

// GadgetMatrix is the l(n+1) x (n+1) matrix GT. Row i of column block j
// (j*l <= i < (j+1)*l) holds floor(q / B^(i-j*l+1)); every other entry is 0.
// A GadgetMatrix is immutable.
type GadgetMatrix struct {
	params GadgetParameters
	data   []uint32
}

// NewGadgetMatrix builds the gadget matrix for p. p must be valid.
func NewGadgetMatrix(p GadgetParameters) *GadgetMatrix {
	rows, cols := p.Rows(), p.Cols()
	gt := &GadgetMatrix{params: p, data: make([]uint32, rows*cols)}

	// the l non-zero values are shared by every column block
	factors := make([]uint32, p.Level)
	pow := uint64(1)
	for k := range factors {
		pow *= uint64(p.Base)
		factors[k] = uint32(p.Q / pow)
	}

	for j := 0; j < cols; j++ {
		for k, f := range factors {
			i := j*p.Level + k
			gt.data[i*cols+j] = f
		}
	}
	return gt
}

// Params returns the gadget parameters.
func (gt *GadgetMatrix) Params() GadgetParameters {
	return gt.params
}

// At returns GT[i][j].
func (gt *GadgetMatrix) At(i, j int) uint32 {
	return gt.data[i*gt.params.Cols()+j]
}

// Row returns row i. The slice is shared and must not be modified.
func (gt *GadgetMatrix) Row(i int) []uint32 {
	cols := gt.params.Cols()
	return gt.data[i*cols : (i+1)*cols]
}

// GadgetCache builds each gadget matrix once per distinct parameter tuple.
// It is safe for concurrent use.
type GadgetCache struct {
	mu       sync.Mutex
	matrices map[GadgetParameters]*GadgetMatrix
}

// NewGadgetCache returns an empty cache.
func NewGadgetCache() *GadgetCache {
	return &GadgetCache{matrices: make(map[GadgetParameters]*GadgetMatrix)}
}

// Get returns the gadget matrix for p, building it on first use.
func (c *GadgetCache) Get(p GadgetParameters) (*GadgetMatrix, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	gt, ok := c.matrices[p]
	if !ok {
		gt = NewGadgetMatrix(p)
		c.matrices[p] = gt
	}
	return gt, nil
}

// Len returns the number of cached matrices.
func (c *GadgetCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.matrices)
}
