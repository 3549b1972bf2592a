// Package boolean implements a boolean LWE scheme over the integer ring
// modulo 2^32 with TFHE-style gate bootstrapping.
//
// Every coefficient is a uint32 and arithmetic wraps modulo 2^32. A bit is
// encoded as +q/8 (true) or -q/8 (false). Bootstrapping is built on
// luxfi/lattice primitives:
//   - an NTT ring over a ~2^55 prime for exact negacyclic products
//   - GGSW encryptions of the LWE key bits for blind rotation
//   - LWE key switching back to the small dimension
//
// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause
package boolean

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/lattice/v7/core/rlwe"
	"github.com/luxfi/lattice/v7/ring"
)

const (
	// LogModulus is log2 of the ciphertext modulus.
	LogModulus = 32
	// Modulus is the ciphertext modulus q = 2^32.
	Modulus uint64 = 1 << LogModulus
	// Eighth is q/8, the encoding of true.
	Eighth uint32 = 1 << (LogModulus - 3)
	// MinusEighth is -q/8 modulo q, the encoding of false.
	MinusEighth uint32 = uint32(Modulus - 1<<(LogModulus-3))
	// Half is q/2.
	Half uint32 = 1 << (LogModulus - 1)

	// nttPrimeBits is the size of the prime carrying the bootstrapping NTT.
	nttPrimeBits = 55
)

var (
	// ErrInvalidParameters is returned for malformed parameter literals.
	ErrInvalidParameters = errors.New("boolean: invalid parameters")
)

// ParametersLiteral is a user-friendly parameter specification
type ParametersLiteral struct {
	// LWEDimension is the dimension n of the LWE key.
	LWEDimension int
	// LogN is log2 of the GLWE polynomial degree used by blind rotation.
	LogN int
	// BootstrapBaseLog and BootstrapLevel define the GGSW gadget.
	BootstrapBaseLog int
	BootstrapLevel   int
	// KeySwitchBaseLog and KeySwitchLevel define the key switching gadget.
	KeySwitchBaseLog int
	KeySwitchLevel   int
	// LWENoiseStd is the standard deviation of LWE noise, in units of 1 (out of 2^32).
	LWENoiseStd float64
	// GLWENoiseStd is the standard deviation of GLWE noise in the bootstrap key.
	GLWENoiseStd float64
}

// Standard parameter sets
var (
	// DefaultParams follows the shape of the default boolean set of tfhe-rs
	// with a single GLWE polynomial of degree 1024.
	DefaultParams = ParametersLiteral{
		LWEDimension:     722,
		LogN:             10,
		BootstrapBaseLog: 7,
		BootstrapLevel:   3,
		KeySwitchBaseLog: 3,
		KeySwitchLevel:   5,
		LWENoiseStd:      4096,
		GLWENoiseStd:     64,
	}

	// TFHELibParams follows the original TFHE library 128-bit set.
	TFHELibParams = ParametersLiteral{
		LWEDimension:     630,
		LogN:             10,
		BootstrapBaseLog: 7,
		BootstrapLevel:   3,
		KeySwitchBaseLog: 2,
		KeySwitchLevel:   8,
		LWENoiseStd:      4096,
		GLWENoiseStd:     64,
	}

	// InsecureTestParams trades all security for speed. Tests only.
	InsecureTestParams = ParametersLiteral{
		LWEDimension:     256,
		LogN:             9,
		BootstrapBaseLog: 7,
		BootstrapLevel:   3,
		KeySwitchBaseLog: 3,
		KeySwitchLevel:   5,
		LWENoiseStd:      4096,
		GLWENoiseStd:     64,
	}
)

// Parameters defines the scheme parameter set
type Parameters struct {
	lit ParametersLiteral
	// paramsBR carries the NTT ring used by blind rotation.
	paramsBR rlwe.Parameters
}

// NewParametersFromLiteral creates Parameters from a literal specification
func NewParametersFromLiteral(lit ParametersLiteral) (params Parameters, err error) {
	if err = lit.validate(); err != nil {
		return
	}

	q, err := nttPrime(lit.LogN)
	if err != nil {
		return
	}

	params.paramsBR, err = rlwe.NewParametersFromLiteral(rlwe.ParametersLiteral{
		LogN:    lit.LogN,
		Q:       []uint64{q},
		NTTFlag: true,
	})
	if err != nil {
		return params, fmt.Errorf("blind rotation ring: %w", err)
	}

	params.lit = lit
	return
}

func (lit ParametersLiteral) validate() error {
	switch {
	case lit.LWEDimension < 1:
		return fmt.Errorf("%w: LWE dimension %d", ErrInvalidParameters, lit.LWEDimension)
	case lit.LogN < 4 || lit.LogN > 13:
		return fmt.Errorf("%w: LogN %d out of [4, 13]", ErrInvalidParameters, lit.LogN)
	case lit.BootstrapBaseLog < 1 || lit.BootstrapLevel < 1 || lit.BootstrapBaseLog*lit.BootstrapLevel > LogModulus:
		return fmt.Errorf("%w: bootstrap gadget %d x %d", ErrInvalidParameters, lit.BootstrapBaseLog, lit.BootstrapLevel)
	case lit.KeySwitchBaseLog < 1 || lit.KeySwitchLevel < 1 || lit.KeySwitchBaseLog*lit.KeySwitchLevel > LogModulus:
		return fmt.Errorf("%w: key switching gadget %d x %d", ErrInvalidParameters, lit.KeySwitchBaseLog, lit.KeySwitchLevel)
	case lit.LWENoiseStd < 0 || lit.GLWENoiseStd < 0:
		return fmt.Errorf("%w: negative noise", ErrInvalidParameters)
	}

	// An external product sums 2l products of a centered 2^32 value by a
	// digit of magnitude at most Bg/2, over N coefficients. The sum must
	// stay below half the NTT prime to be lifted back exactly.
	bound := new(big.Int).Lsh(big.NewInt(int64(2*lit.BootstrapLevel)), uint(lit.LogN+lit.BootstrapBaseLog-1+LogModulus-1))
	if bound.BitLen() >= nttPrimeBits-1 {
		return fmt.Errorf("%w: bootstrap products overflow the NTT prime", ErrInvalidParameters)
	}
	return nil
}

// nttPrime returns the largest prime below 2^55 congruent to 1 mod 2N.
func nttPrime(logN int) (uint64, error) {
	step := uint64(2) << logN
	for q := (uint64(1)<<nttPrimeBits)/step*step + 1; q > step; q -= step {
		if q >= uint64(1)<<nttPrimeBits {
			continue
		}
		if new(big.Int).SetUint64(q).ProbablyPrime(20) {
			return q, nil
		}
	}
	return 0, fmt.Errorf("%w: no NTT prime for LogN %d", ErrInvalidParameters, logN)
}

// Literal returns the literal the parameters were built from.
func (p Parameters) Literal() ParametersLiteral {
	return p.lit
}

// LWEDimension returns n.
func (p Parameters) LWEDimension() int {
	return p.lit.LWEDimension
}

// LWESize returns n+1, the length of a raw LWE vector.
func (p Parameters) LWESize() int {
	return p.lit.LWEDimension + 1
}

// N returns the GLWE polynomial degree.
func (p Parameters) N() int {
	return 1 << p.lit.LogN
}

// Q returns the ciphertext modulus.
func (p Parameters) Q() uint64 {
	return Modulus
}

func (p Parameters) ringQ() *ring.Ring {
	return p.paramsBR.RingQ()
}

func (p Parameters) bskGadget() gadget {
	return gadget{baseLog: p.lit.BootstrapBaseLog, level: p.lit.BootstrapLevel}
}

func (p Parameters) kskGadget() gadget {
	return gadget{baseLog: p.lit.KeySwitchBaseLog, level: p.lit.KeySwitchLevel}
}
