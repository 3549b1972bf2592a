// Package ohlg implements obfuscated logic gates on top of the boolean LWE
// scheme, and the Oblivious Direct Matching protocol built from them.
//
// A gate is selected by a pair of encrypted parameters (A, d): A is a small
// integer encrypted as a coefficient (TGSW) ciphertext and d is an LWE
// encryption of an offset. The evaluator computes
//
//	bootstrap(A x (c1 + c2) + d)
//
// with one external product and one bootstrap, and never learns which
// boolean function it applied.
//
// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause
package ohlg

import (
	"errors"
	"fmt"
	"sort"

	"github.com/luxfi/ohlg/boolean"
)

var (
	// ErrInvalidParameters is returned for malformed gadget parameters.
	ErrInvalidParameters = errors.New("invalid gadget parameters")
	// ErrParameterMismatch is returned when a coefficient ciphertext, an
	// encrypted bit and the evaluation context disagree on (n, B, l, q).
	ErrParameterMismatch = errors.New("gadget parameter mismatch")
	// ErrUnknownParameters is returned by ParametersLiteralByName.
	ErrUnknownParameters = errors.New("unknown parameter set")
)

// GadgetParameters identifies a gadget matrix. It is comparable and keys
// the gadget cache.
type GadgetParameters struct {
	// LWEDimension is n.
	LWEDimension int
	// Base is the decomposition base B.
	Base uint32
	// Level is the decomposition depth l.
	Level int
	// Q is the ciphertext modulus.
	Q uint64
}

// Rows returns l(n+1).
func (p GadgetParameters) Rows() int {
	return p.Level * (p.LWEDimension + 1)
}

// Cols returns n+1.
func (p GadgetParameters) Cols() int {
	return p.LWEDimension + 1
}

// BaseToLevel returns B^l.
func (p GadgetParameters) BaseToLevel() uint64 {
	bl := uint64(1)
	for i := 0; i < p.Level; i++ {
		bl *= uint64(p.Base)
	}
	return bl
}

// Validate checks B >= 2, l >= 1, B^l <= q and q = 2^32.
func (p GadgetParameters) Validate() error {
	switch {
	case p.LWEDimension < 1:
		return fmt.Errorf("%w: LWE dimension %d", ErrInvalidParameters, p.LWEDimension)
	case p.Base < 2:
		return fmt.Errorf("%w: base %d", ErrInvalidParameters, p.Base)
	case p.Level < 1 || p.Level > 32:
		return fmt.Errorf("%w: level %d", ErrInvalidParameters, p.Level)
	case p.Q != boolean.Modulus:
		return fmt.Errorf("%w: modulus %d, only 2^32 is supported", ErrInvalidParameters, p.Q)
	}
	bl := uint64(1)
	for i := 0; i < p.Level; i++ {
		bl *= uint64(p.Base)
		if bl > p.Q {
			return fmt.Errorf("%w: %d^%d exceeds the modulus", ErrInvalidParameters, p.Base, p.Level)
		}
	}
	return nil
}

// ParametersLiteral pairs a scheme parameter set with the decomposition
// used by coefficient ciphertexts.
type ParametersLiteral struct {
	Scheme      boolean.ParametersLiteral
	DecompBase  uint32
	DecompLevel int
}

// Standard parameter sets
var (
	// DefaultParams uses base 64 with two levels.
	DefaultParams = ParametersLiteral{
		Scheme:      boolean.DefaultParams,
		DecompBase:  64,
		DecompLevel: 2,
	}

	// TFHELibParams uses base 16 with three levels.
	TFHELibParams = ParametersLiteral{
		Scheme:      boolean.TFHELibParams,
		DecompBase:  16,
		DecompLevel: 3,
	}

	// InsecureTestParams is for tests and local demos only.
	InsecureTestParams = ParametersLiteral{
		Scheme:      boolean.InsecureTestParams,
		DecompBase:  64,
		DecompLevel: 2,
	}
)

var namedParams = map[string]ParametersLiteral{
	"default":  DefaultParams,
	"tfhe-lib": TFHELibParams,
	"test":     InsecureTestParams,
}

// ParametersLiteralByName returns a standard parameter set.
func ParametersLiteralByName(name string) (ParametersLiteral, error) {
	lit, ok := namedParams[name]
	if !ok {
		return ParametersLiteral{}, fmt.Errorf("%w: %q (have %v)", ErrUnknownParameters, name, ParameterSetNames())
	}
	return lit, nil
}

// ParameterSetNames lists the standard parameter set names.
func ParameterSetNames() []string {
	names := make([]string, 0, len(namedParams))
	for name := range namedParams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parameters is a validated parameter set.
type Parameters struct {
	scheme boolean.Parameters
	gadget GadgetParameters
}

// NewParametersFromLiteral creates Parameters from a literal specification
func NewParametersFromLiteral(lit ParametersLiteral) (params Parameters, err error) {
	params.scheme, err = boolean.NewParametersFromLiteral(lit.Scheme)
	if err != nil {
		return
	}
	params.gadget = GadgetParameters{
		LWEDimension: params.scheme.LWEDimension(),
		Base:         lit.DecompBase,
		Level:        lit.DecompLevel,
		Q:            params.scheme.Q(),
	}
	err = params.gadget.Validate()
	return
}

// Scheme returns the boolean scheme parameters.
func (p Parameters) Scheme() boolean.Parameters {
	return p.scheme
}

// Gadget returns the gadget parameters (n, B, l, q).
func (p Parameters) Gadget() GadgetParameters {
	return p.gadget
}

// Literal returns the literal the parameters were built from.
func (p Parameters) Literal() ParametersLiteral {
	return ParametersLiteral{
		Scheme:      p.scheme.Literal(),
		DecompBase:  p.gadget.Base,
		DecompLevel: p.gadget.Level,
	}
}
