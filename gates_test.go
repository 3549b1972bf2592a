// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package ohlg

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ohlg/boolean"
)

// countingEncryptor counts encryptions of zero.
type countingEncryptor struct {
	enc   *boolean.Encryptor
	calls int
}

func (c *countingEncryptor) EncryptZero() *boolean.Ciphertext {
	c.calls++
	return c.enc.EncryptZero()
}

func centered(v uint32) int64 {
	return int64(int32(v))
}

func TestEncryptCoefficient(t *testing.T) {
	ctx, sk, _ := setupTest(t)
	params := ctx.Params().Scheme()
	enc := boolean.NewEncryptor(params, sk)
	dec := boolean.NewDecryptor(params, sk)
	p := ctx.Params().Gadget()

	zeros := &countingEncryptor{enc: enc}
	ct, err := ctx.EncryptCoefficient(3, zeros)
	require.NoError(t, err)
	require.Equal(t, p.Rows(), zeros.calls)
	require.Equal(t, p, ct.Params())

	// every row decrypts to 3 times the matching gadget row
	gt := ctx.Gadget()
	for i := 0; i < p.Rows(); i++ {
		phase, err := dec.Phase(boolean.NewCiphertextFromRaw(append([]uint32(nil), ct.Row(i)...)))
		require.NoError(t, err)

		scaled := make([]uint32, p.Cols())
		for j, g := range gt.Row(i) {
			scaled[j] = 3 * g
		}
		want, err := dec.Phase(boolean.NewCiphertextFromRaw(scaled))
		require.NoError(t, err)
		require.Less(t, abs(centered(phase-want)), int64(1)<<20, "row %d", i)
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestExternalProduct(t *testing.T) {
	ctx, sk, bsk := setupTest(t)
	params := ctx.Params().Scheme()
	enc := boolean.NewEncryptor(params, sk)
	dec := boolean.NewDecryptor(params, sk)
	ge := NewGateEvaluator(ctx, bsk)

	phaseOf := func(acc *Accumulator) uint32 {
		phase, err := dec.Phase(boolean.NewCiphertextFromRaw(append([]uint32(nil), acc.raw...)))
		require.NoError(t, err)
		return phase
	}

	testCases := []struct {
		name string
		m    uint32
		bit  bool
		want uint32
	}{
		{"one times true", 1, true, boolean.Eighth},
		{"one times false", 1, false, boolean.MinusEighth},
		{"two times true", 2, true, 2 * boolean.Eighth},
		{"two times false", 2, false, 6 * boolean.Eighth},
		{"zero times true", 0, true, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ct, err := ctx.EncryptCoefficient(tc.m, enc)
			require.NoError(t, err)

			acc, err := ctx.ExternalProduct(ct, enc.Encrypt(tc.bit))
			require.NoError(t, err)
			require.Less(t, abs(centered(phaseOf(acc)-tc.want)), int64(1)<<27)

			if tc.m == 1 {
				out, err := ge.Bootstrap(acc)
				require.NoError(t, err)
				require.Equal(t, tc.bit, dec.Decrypt(out))
			}
		})
	}

	t.Run("TrivialBit", func(t *testing.T) {
		ct, err := ctx.EncryptCoefficient(1, enc)
		require.NoError(t, err)
		_, err = ctx.ExternalProduct(ct, boolean.NewTrivialCiphertext(true))
		require.ErrorIs(t, err, boolean.ErrTrivialCiphertext)
	})

	t.Run("ParameterMismatch", func(t *testing.T) {
		lit := InsecureTestParams
		lit.DecompBase, lit.DecompLevel = 16, 3
		params, err := NewParametersFromLiteral(lit)
		require.NoError(t, err)
		other, err := NewContext(params, nil)
		require.NoError(t, err)

		ct, err := other.EncryptCoefficient(1, enc)
		require.NoError(t, err)
		_, err = ctx.ExternalProduct(ct, enc.Encrypt(true))
		require.ErrorIs(t, err, ErrParameterMismatch)

		_, err = ctx.ExternalProduct(nil, enc.Encrypt(true))
		require.ErrorIs(t, err, ErrParameterMismatch)
	})
}

func TestRescale(t *testing.T) {
	bl := uint64(4096)
	require.Equal(t, uint32(0), rescale(0, bl))
	require.Equal(t, uint32(1), rescale(1<<20, bl))
	require.Equal(t, uint32(1), rescale(1<<19, bl))
	require.Equal(t, uint32(0), rescale(1<<19-1, bl))
	// values that round up to B^l wrap to 0 after decomposition
	require.Equal(t, uint32(4096), rescale(0xFFFFFFFF, bl))
	require.Equal(t, []uint32{0, 0}, Decompose(rescale(0xFFFFFFFF, bl), 64, 2))
	require.Equal(t, uint32(0xFFFFFFFF), rescale(0xFFFFFFFF, 1<<32))
}

func TestObliviousGate2(t *testing.T) {
	ctx, sk, bsk := setupTest(t)
	params := ctx.Params().Scheme()
	enc := boolean.NewEncryptor(params, sk)
	dec := boolean.NewDecryptor(params, sk)
	ge := NewGateEvaluator(ctx, bsk)

	inputs := []struct{ a, b bool }{
		{false, false},
		{false, true},
		{true, false},
		{true, true},
	}

	for _, g := range []Gate{GateNAND, GateAND, GateOR, GateXNOR, GateNOR, GateXOR} {
		t.Run(g.String(), func(t *testing.T) {
			failures := 0
			for trial := 0; trial < trials(); trial++ {
				for _, in := range inputs {
					p, err := ctx.EncryptGate(g, enc)
					require.NoError(t, err)

					out, err := ge.ObliviousGate2(enc.Encrypt(in.a), enc.Encrypt(in.b), p.A, p.D)
					require.NoError(t, err)
					if dec.Decrypt(out) != g.Eval(in.a, in.b) {
						failures++
						t.Errorf("trial %d: %v(%v, %v) = %v", trial, g, in.a, in.b, !g.Eval(in.a, in.b))
					}
				}
			}
			require.Zero(t, failures)
		})
	}
}

func TestObliviousGate1(t *testing.T) {
	ctx, sk, bsk := setupTest(t)
	params := ctx.Params().Scheme()
	enc := boolean.NewEncryptor(params, sk)
	dec := boolean.NewDecryptor(params, sk)
	ge := NewGateEvaluator(ctx, bsk)

	for _, g := range []Gate{GateBuffer, GateNOT} {
		t.Run(g.String(), func(t *testing.T) {
			for trial := 0; trial < trials()/5; trial++ {
				for _, a := range []bool{false, true} {
					p, err := ctx.EncryptGate(g, enc)
					require.NoError(t, err)
					require.Nil(t, p.A)

					out, err := ge.Apply(enc.Encrypt(a), nil, p)
					require.NoError(t, err)
					require.Equal(t, g.Eval(a, false), dec.Decrypt(out))
				}
			}
		})
	}
}

func TestObliviousGateTrivialInputs(t *testing.T) {
	ctx, sk, bsk := setupTest(t)
	enc := boolean.NewEncryptor(ctx.Params().Scheme(), sk)
	ge := NewGateEvaluator(ctx, bsk)

	p, err := ctx.EncryptGate(GateNAND, enc)
	require.NoError(t, err)
	trivial := boolean.NewTrivialCiphertext(true)

	_, err = ge.ObliviousGate2(trivial, enc.Encrypt(true), p.A, p.D)
	require.ErrorIs(t, err, boolean.ErrTrivialCiphertext)
	_, err = ge.ObliviousGate2(enc.Encrypt(true), trivial, p.A, p.D)
	require.ErrorIs(t, err, boolean.ErrTrivialCiphertext)
	_, err = ge.ObliviousGate2(enc.Encrypt(true), enc.Encrypt(true), p.A, trivial)
	require.ErrorIs(t, err, boolean.ErrTrivialCiphertext)
	_, err = ge.ObliviousGate1(trivial, enc.EncryptZero())
	require.ErrorIs(t, err, boolean.ErrTrivialCiphertext)
	_, err = ge.ObliviousGate1(enc.Encrypt(true), trivial)
	require.ErrorIs(t, err, boolean.ErrTrivialCiphertext)
}

func TestObliviousGateParameterSets(t *testing.T) {
	if testing.Short() {
		t.Skip("generates bootstrap keys for the standard parameter sets")
	}
	for _, name := range []string{"default", "tfhe-lib"} {
		t.Run(name, func(t *testing.T) {
			lit, err := ParametersLiteralByName(name)
			require.NoError(t, err)
			params, err := NewParametersFromLiteral(lit)
			require.NoError(t, err)
			ctx, err := NewContext(params, nil)
			require.NoError(t, err)

			kgen := boolean.NewKeyGenerator(params.Scheme())
			sk := kgen.GenSecretKey()
			enc := boolean.NewEncryptor(params.Scheme(), sk)
			dec := boolean.NewDecryptor(params.Scheme(), sk)
			ge := NewGateEvaluator(ctx, kgen.GenBootstrapKey(sk))

			for _, g := range []Gate{GateNAND, GateAND, GateOR, GateXNOR, GateNOR, GateXOR} {
				p, err := ctx.EncryptGate(g, enc)
				require.NoError(t, err)
				for _, a := range []bool{false, true} {
					for _, b := range []bool{false, true} {
						out, err := ge.ObliviousGate2(enc.Encrypt(a), enc.Encrypt(b), p.A, p.D)
						require.NoError(t, err)
						require.Equal(t, g.Eval(a, b), dec.Decrypt(out), "%v(%v, %v)", g, a, b)
					}
				}
			}
			for _, g := range []Gate{GateBuffer, GateNOT} {
				p, err := ctx.EncryptGate(g, enc)
				require.NoError(t, err)
				for _, a := range []bool{false, true} {
					out, err := ge.Apply(enc.Encrypt(a), nil, p)
					require.NoError(t, err)
					require.Equal(t, g.Eval(a, false), dec.Decrypt(out), "%v(%v)", g, a)
				}
			}
		})
	}
}

func TestGateConstants(t *testing.T) {
	// the cleartext image of A*(c1+c2)+d lands in [0, q/2) exactly when
	// the gate outputs true
	for _, g := range []Gate{GateNAND, GateAND, GateOR, GateXNOR, GateNOR, GateXOR} {
		k := g.Constants()
		for _, a := range []bool{false, true} {
			for _, b := range []bool{false, true} {
				enc := func(v bool) uint32 {
					if v {
						return boolean.Eighth
					}
					return boolean.MinusEighth
				}
				phase := k.A*(enc(a)+enc(b)) + k.D
				require.Equal(t, g.Eval(a, b), phase < boolean.Half, "%v(%v, %v)", g, a, b)
			}
		}
	}
	require.Equal(t, "XNOR", GateXNOR.String())
	require.Equal(t, 1, GateNOT.Arity())
}
