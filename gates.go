// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package ohlg

import (
	"fmt"

	"github.com/luxfi/ohlg/boolean"
)

// Gate names a boolean function that can be encoded as gate parameters.
type Gate uint8

const (
	GateNAND Gate = iota
	GateAND
	GateOR
	GateXNOR
	GateNOR
	GateXOR
	// GateBuffer and GateNOT take one operand.
	GateBuffer
	GateNOT
)

var gateNames = [...]string{"NAND", "AND", "OR", "XNOR", "NOR", "XOR", "BUFFER", "NOT"}

func (g Gate) String() string {
	if int(g) < len(gateNames) {
		return gateNames[g]
	}
	return fmt.Sprintf("Gate(%d)", uint8(g))
}

// Arity returns the number of operands of g.
func (g Gate) Arity() int {
	if g == GateBuffer || g == GateNOT {
		return 1
	}
	return 2
}

// GateConstants are the cleartext gate parameters. A is the multiplier of
// c1+c2 and D the additive offset, both modulo 2^32. One-operand gates use
// only D.
type GateConstants struct {
	A uint32
	D uint32
}

// Constants returns the (A, d) encoding of g. Offsets are multiples of q/8.
func (g Gate) Constants() GateConstants {
	const eighth = boolean.Eighth
	switch g {
	case GateNAND:
		return GateConstants{A: 1, D: 3 * eighth}
	case GateAND:
		return GateConstants{A: 1, D: 7 * eighth}
	case GateOR:
		return GateConstants{A: 1, D: eighth}
	case GateXNOR:
		return GateConstants{A: 2, D: 6 * eighth}
	case GateNOR:
		return GateConstants{A: 1, D: 5 * eighth}
	case GateXOR:
		return GateConstants{A: 2, D: 2 * eighth}
	case GateBuffer:
		return GateConstants{}
	case GateNOT:
		return GateConstants{D: boolean.Half}
	}
	panic(fmt.Sprintf("ohlg: unknown gate %d", uint8(g)))
}

// Eval evaluates g on cleartext inputs. b is ignored by one-operand gates.
func (g Gate) Eval(a, b bool) bool {
	switch g {
	case GateNAND:
		return !(a && b)
	case GateAND:
		return a && b
	case GateOR:
		return a || b
	case GateXNOR:
		return a == b
	case GateNOR:
		return !(a || b)
	case GateXOR:
		return a != b
	case GateBuffer:
		return a
	case GateNOT:
		return !a
	}
	panic(fmt.Sprintf("ohlg: unknown gate %d", uint8(g)))
}

// GateParams is an encrypted gate: the multiplier A as a coefficient
// ciphertext and the offset d as an LWE ciphertext.
type GateParams struct {
	A *CoefficientCiphertext
	D *boolean.Ciphertext
}

// EncryptGate encrypts the constants of g. enc supplies both the encryption
// of d and the l(n+1) encryptions of zero behind A. One-operand gates carry
// no A.
func (c *Context) EncryptGate(g Gate, enc *boolean.Encryptor) (GateParams, error) {
	k := g.Constants()
	if g.Arity() == 1 {
		return GateParams{D: enc.EncryptAbs(k.D)}, nil
	}
	a, err := c.EncryptCoefficient(k.A, enc)
	if err != nil {
		return GateParams{}, fmt.Errorf("encrypt %v: %w", g, err)
	}
	return GateParams{A: a, D: enc.EncryptAbs(k.D)}, nil
}

// GateEvaluator applies obfuscated gates. It owns a bootstrapping engine
// and must be confined to a single goroutine.
type GateEvaluator struct {
	ctx  *Context
	eval *boolean.Evaluator
}

// NewGateEvaluator creates a gate evaluator with its own engine.
func NewGateEvaluator(ctx *Context, bsk *boolean.BootstrapKey) *GateEvaluator {
	return &GateEvaluator{ctx: ctx, eval: boolean.NewEvaluator(ctx.params.scheme, bsk)}
}

// Context returns the evaluator context.
func (ge *GateEvaluator) Context() *Context {
	return ge.ctx
}

// Bootstrap refreshes an accumulator into an encrypted bit.
func (ge *GateEvaluator) Bootstrap(acc *Accumulator) (*boolean.Ciphertext, error) {
	return ge.eval.Bootstrap(acc.raw)
}

// ObliviousGate2 returns bootstrap(A x (c1 + c2) + d). It fails before any
// computation if an operand is trivial.
func (ge *GateEvaluator) ObliviousGate2(c1, c2 *boolean.Ciphertext, a *CoefficientCiphertext, d *boolean.Ciphertext) (*boolean.Ciphertext, error) {
	for _, ct := range []*boolean.Ciphertext{c1, c2, d} {
		if _, err := ct.Raw(); err != nil {
			return nil, fmt.Errorf("oblivious gate: %w", err)
		}
	}
	sum, err := boolean.Add(c1, c2)
	if err != nil {
		return nil, fmt.Errorf("oblivious gate: %w", err)
	}
	acc, err := ge.ctx.ExternalProduct(a, sum)
	if err != nil {
		return nil, fmt.Errorf("oblivious gate: %w", err)
	}
	if err := acc.AddBit(d); err != nil {
		return nil, fmt.Errorf("oblivious gate: %w", err)
	}
	return ge.Bootstrap(acc)
}

// ObliviousGate1 returns bootstrap(c1 + addend). An encryption of 0 acts as
// a buffer and an encryption of q/2 as NOT.
func (ge *GateEvaluator) ObliviousGate1(c1, addend *boolean.Ciphertext) (*boolean.Ciphertext, error) {
	sum, err := boolean.Add(c1, addend)
	if err != nil {
		return nil, fmt.Errorf("oblivious gate: %w", err)
	}
	raw, err := sum.Raw()
	if err != nil {
		return nil, fmt.Errorf("oblivious gate: %w", err)
	}
	return ge.eval.Bootstrap(raw)
}

// Apply evaluates encrypted gate parameters on c1 and c2. c2 is ignored
// by one-operand parameters.
func (ge *GateEvaluator) Apply(c1, c2 *boolean.Ciphertext, p GateParams) (*boolean.Ciphertext, error) {
	if p.A == nil {
		return ge.ObliviousGate1(c1, p.D)
	}
	return ge.ObliviousGate2(c1, c2, p.A, p.D)
}
