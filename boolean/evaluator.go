// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package boolean

import (
	"fmt"

	"github.com/luxfi/lattice/v7/ring"
)

// Evaluator is the bootstrapping engine. It does not require the secret key.
//
// An Evaluator owns scratch buffers and must be confined to a single
// goroutine. Concurrent workers each create their own from a shared
// BootstrapKey.
type Evaluator struct {
	params Parameters
	bsk    *BootstrapKey
	mul    *polyMultiplier

	bskOffset uint32
	ksOffset  uint32

	testVector []uint32
	accA, accB []uint32
	rotA, rotB []uint32
	digits     []int32
	digitPolys [][]int32
	digitNTT   []ring.Poly
	outA, outB ring.Poly
	extracted  []uint32
	ksDigits   []int32
}

// NewEvaluator creates a new evaluator with bootstrap key.
func NewEvaluator(params Parameters, bsk *BootstrapKey) *Evaluator {
	N := params.N()
	g := params.bskGadget()
	mul := newPolyMultiplier(params)

	eval := &Evaluator{
		params:     params,
		bsk:        bsk,
		mul:        mul,
		bskOffset:  g.offset(),
		ksOffset:   params.kskGadget().offset(),
		testVector: make([]uint32, N),
		accA:       make([]uint32, N),
		accB:       make([]uint32, N),
		rotA:       make([]uint32, N),
		rotB:       make([]uint32, N),
		digits:     make([]int32, g.level),
		digitPolys: make([][]int32, 2*g.level),
		digitNTT:   make([]ring.Poly, 2*g.level),
		outA:       mul.ringQ.NewPoly(),
		outB:       mul.ringQ.NewPoly(),
		extracted:  make([]uint32, N+1),
		ksDigits:   make([]int32, params.kskGadget().level),
	}
	for i := range eval.testVector {
		eval.testVector[i] = Eighth
	}
	for r := range eval.digitPolys {
		eval.digitPolys[r] = make([]int32, N)
		eval.digitNTT[r] = mul.ringQ.NewPoly()
	}
	return eval
}

// Params returns the evaluator parameters.
func (eval *Evaluator) Params() Parameters {
	return eval.params
}

// Bootstrap refreshes a raw LWE vector into a fresh ciphertext encrypting
// +q/8 when its phase lies in [0, q/2) and -q/8 otherwise.
func (eval *Evaluator) Bootstrap(raw []uint32) (*Ciphertext, error) {
	if len(raw) != eval.params.LWESize() {
		return nil, fmt.Errorf("bootstrap: %w: got %d, want %d", ErrDimensionMismatch, len(raw), eval.params.LWESize())
	}
	eval.blindRotate(raw)
	eval.sampleExtract()
	return NewCiphertextFromRaw(eval.keySwitch()), nil
}

// modSwitch rounds a torus value to Z/2N.
func (eval *Evaluator) modSwitch(v uint32) int {
	logTwoN := eval.params.lit.LogN + 1
	shift := LogModulus - logTwoN
	return int(((uint64(v) + 1<<(shift-1)) >> shift) & (1<<logTwoN - 1))
}

// blindRotate leaves X^{-phase} * testVector, encrypted under the GLWE key,
// in accA/accB.
func (eval *Evaluator) blindRotate(raw []uint32) {
	n := eval.params.LWEDimension()
	N := eval.params.N()

	for i := range eval.accA {
		eval.accA[i] = 0
	}
	body := eval.modSwitch(raw[n])
	mulByMonomial(eval.accB, eval.testVector, 2*N-body)

	for i := 0; i < n; i++ {
		ai := eval.modSwitch(raw[i])
		if ai == 0 {
			continue
		}
		eval.cmux(i, ai)
	}
}

// cmux sets acc += GGSW(s_i) x (X^ai * acc - acc).
func (eval *Evaluator) cmux(i, ai int) {
	g := eval.params.bskGadget()
	N := eval.params.N()
	rows := 2 * g.level

	mulByMonomial(eval.rotA, eval.accA, ai)
	mulByMonomial(eval.rotB, eval.accB, ai)
	for j := 0; j < N; j++ {
		eval.rotA[j] -= eval.accA[j]
		eval.rotB[j] -= eval.accB[j]
	}

	for j := 0; j < N; j++ {
		g.decompose(eval.rotA[j], eval.bskOffset, eval.digits)
		for r := 0; r < g.level; r++ {
			eval.digitPolys[r][j] = eval.digits[r]
		}
		g.decompose(eval.rotB[j], eval.bskOffset, eval.digits)
		for r := 0; r < g.level; r++ {
			eval.digitPolys[g.level+r][j] = eval.digits[r]
		}
	}

	base := i * rows * 2
	for row := 0; row < rows; row++ {
		eval.mul.smallToNTT(eval.digitPolys[row], eval.digitNTT[row])
		rowA := eval.bsk.bskNTT[base+2*row]
		rowB := eval.bsk.bskNTT[base+2*row+1]
		if row == 0 {
			eval.mul.mul(eval.digitNTT[row], rowA, eval.outA)
			eval.mul.mul(eval.digitNTT[row], rowB, eval.outB)
		} else {
			eval.mul.mulAdd(eval.digitNTT[row], rowA, eval.outA)
			eval.mul.mulAdd(eval.digitNTT[row], rowB, eval.outB)
		}
	}
	eval.mul.addFromNTT(eval.outA, eval.accA)
	eval.mul.addFromNTT(eval.outB, eval.accB)
}

// sampleExtract reads the constant coefficient of the accumulator as an
// LWE sample of dimension N under the GLWE key coefficients.
func (eval *Evaluator) sampleExtract() {
	N := eval.params.N()
	eval.extracted[0] = eval.accA[0]
	for j := 1; j < N; j++ {
		eval.extracted[j] = -eval.accA[N-j]
	}
	eval.extracted[N] = eval.accB[0]
}

// keySwitch maps the extracted sample back to the LWE key.
func (eval *Evaluator) keySwitch() []uint32 {
	N := eval.params.N()
	size := eval.params.LWESize()
	ks := eval.params.kskGadget()

	out := make([]uint32, size)
	out[size-1] = eval.extracted[N]
	for j := 0; j < N; j++ {
		ks.decompose(eval.extracted[j], eval.ksOffset, eval.ksDigits)
		for r, d := range eval.ksDigits {
			if d == 0 {
				continue
			}
			ud := uint32(d)
			off := (j*ks.level + r) * size
			row := eval.bsk.ksk[off : off+size]
			for t := range out {
				out[t] -= ud * row[t]
			}
		}
	}
	return out
}

// ========== Boolean Gates ==========

// gate bootstraps k*(ct1+ct2) + c.
func (eval *Evaluator) gate(ct1, ct2 *Ciphertext, k, c uint32) (*Ciphertext, error) {
	sum, err := Add(ct1, ct2)
	if err != nil {
		return nil, fmt.Errorf("gate: %w", err)
	}
	return eval.Bootstrap(scaleAddConst(sum.lwe, k, c))
}

// NOT computes the logical NOT of the input without bootstrapping.
func (eval *Evaluator) NOT(ct *Ciphertext) (*Ciphertext, error) {
	raw, err := ct.Raw()
	if err != nil {
		return nil, fmt.Errorf("not: %w", err)
	}
	return NewCiphertextFromRaw(scaleAddConst(raw, ^uint32(0), 0)), nil
}

// AND computes the logical AND of two inputs
func (eval *Evaluator) AND(ct1, ct2 *Ciphertext) (*Ciphertext, error) {
	return eval.gate(ct1, ct2, 1, MinusEighth)
}

// OR computes the logical OR of two inputs
func (eval *Evaluator) OR(ct1, ct2 *Ciphertext) (*Ciphertext, error) {
	return eval.gate(ct1, ct2, 1, Eighth)
}

// NAND computes the logical NAND of two inputs
func (eval *Evaluator) NAND(ct1, ct2 *Ciphertext) (*Ciphertext, error) {
	return eval.gate(ct1, ct2, ^uint32(0), Eighth)
}

// NOR computes the logical NOR of two inputs
func (eval *Evaluator) NOR(ct1, ct2 *Ciphertext) (*Ciphertext, error) {
	return eval.gate(ct1, ct2, ^uint32(0), MinusEighth)
}

// XOR computes the logical XOR of two inputs: 2*(ct1+ct2) + q/4
func (eval *Evaluator) XOR(ct1, ct2 *Ciphertext) (*Ciphertext, error) {
	return eval.gate(ct1, ct2, 2, 2*Eighth)
}

// XNOR computes the logical XNOR of two inputs: -2*(ct1+ct2) - q/4
func (eval *Evaluator) XNOR(ct1, ct2 *Ciphertext) (*Ciphertext, error) {
	return eval.gate(ct1, ct2, ^uint32(1), 6*Eighth)
}
