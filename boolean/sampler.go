// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package boolean

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/luxfi/lattice/v7/ring"
	"github.com/luxfi/lattice/v7/utils/sampling"
)

// noiseBound is the tail cut of gaussian noise, in standard deviations.
const noiseBound = 6

// sampler draws uniform and binary values from a keyed PRNG and gaussian
// noise from the ring samplers of the blind rotation ring. It is not safe
// for concurrent use.
type sampler struct {
	prng  sampling.PRNG
	ringQ *ring.Ring
	q     uint64
	noise map[float64]*noiseSource
	buf   [4]byte
}

// noiseSource hands out the coefficients of a sampled polynomial one at a
// time and resamples when they run out.
type noiseSource struct {
	s    ring.Sampler
	poly ring.Poly
	next int
}

// newSampler keys a sampler from crypto/rand.
func newSampler(params Parameters) *sampler {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(fmt.Errorf("sampler seed: %w", err)) // crypto/rand does not fail on supported platforms
	}
	s, err := newKeyedSampler(params, key)
	if err != nil {
		panic(err)
	}
	return s
}

// newKeyedSampler returns a deterministic sampler for the given key.
func newKeyedSampler(params Parameters, key []byte) (*sampler, error) {
	prng, err := sampling.NewKeyedPRNG(key)
	if err != nil {
		return nil, fmt.Errorf("sampler: %w", err)
	}
	return &sampler{
		prng:  prng,
		ringQ: params.ringQ(),
		q:     params.paramsBR.Q()[0],
		noise: make(map[float64]*noiseSource),
	}, nil
}

func (s *sampler) read(n int) []byte {
	if _, err := io.ReadFull(s.prng, s.buf[:n]); err != nil {
		panic(fmt.Errorf("sampler: %w", err)) // the XOF stream is unbounded
	}
	return s.buf[:n]
}

// uniform returns a uniform value modulo 2^32.
func (s *sampler) uniform() uint32 {
	return binary.LittleEndian.Uint32(s.read(4))
}

// uniformVec fills v with uniform values.
func (s *sampler) uniformVec(v []uint32) {
	for i := range v {
		v[i] = s.uniform()
	}
}

// binary returns 0 or 1.
func (s *sampler) binary() uint32 {
	return uint32(s.read(1)[0] & 1)
}

// gaussian returns a bounded discrete gaussian sample reduced modulo 2^32.
func (s *sampler) gaussian(sigma float64) uint32 {
	if sigma == 0 {
		return 0
	}
	src, ok := s.noise[sigma]
	if !ok {
		gs, err := ring.NewSampler(s.prng, s.ringQ, ring.DiscreteGaussian{Sigma: sigma, Bound: noiseBound * sigma}, false)
		if err != nil {
			panic(fmt.Errorf("sampler: %w", err)) // DiscreteGaussian is always a valid distribution
		}
		src = &noiseSource{s: gs, poly: s.ringQ.NewPoly()}
		src.next = len(src.poly.Coeffs[0])
		s.noise[sigma] = src
	}
	if src.next == len(src.poly.Coeffs[0]) {
		src.s.Read(src.poly)
		src.next = 0
	}
	v := src.poly.Coeffs[0][src.next]
	src.next++
	return s.lift(v)
}

// lift maps a residue modulo the ring prime to its centered value modulo
// 2^32.
func (s *sampler) lift(v uint64) uint32 {
	if v > s.q>>1 {
		return -uint32(s.q - v)
	}
	return uint32(v)
}
