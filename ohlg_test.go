// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package ohlg

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/ohlg/boolean"
)

type testKeys struct {
	ctx *Context
	sk  *boolean.SecretKey
	bsk *boolean.BootstrapKey
}

var (
	keysOnce sync.Once
	keys     testKeys
	keysErr  error
)

// setupTest generates one key set shared by every test in the package.
func setupTest(t *testing.T) (*Context, *boolean.SecretKey, *boolean.BootstrapKey) {
	t.Helper()
	keysOnce.Do(func() {
		var params Parameters
		params, keysErr = NewParametersFromLiteral(InsecureTestParams)
		if keysErr != nil {
			return
		}
		keys.ctx, keysErr = NewContext(params, nil)
		if keysErr != nil {
			return
		}
		kgen := boolean.NewKeyGenerator(params.Scheme())
		keys.sk = kgen.GenSecretKey()
		keys.bsk = kgen.GenBootstrapKey(keys.sk)
	})
	require.NoError(t, keysErr)
	return keys.ctx, keys.sk, keys.bsk
}

// trials returns the number of repetitions for randomized gate tests.
func trials() int {
	if testing.Short() {
		return 10
	}
	return 100
}

func TestDecompose(t *testing.T) {
	testCases := []struct {
		value uint32
		base  uint32
		level int
		want  []uint32
	}{
		{value: 0, base: 64, level: 2, want: []uint32{0, 0}},
		{value: 4095, base: 64, level: 2, want: []uint32{63, 63}},
		{value: 4096, base: 64, level: 2, want: []uint32{0, 0}},
		{value: 0x123, base: 16, level: 3, want: []uint32{1, 2, 3}},
		{value: 987, base: 10, level: 3, want: []uint32{9, 8, 7}},
		{value: 0xFFFFFFFF, base: 1 << 16, level: 2, want: []uint32{0xFFFF, 0xFFFF}},
	}
	for _, tc := range testCases {
		got := Decompose(tc.value, tc.base, tc.level)
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("Decompose(%d, %d, %d) mismatch (-want +got):\n%s", tc.value, tc.base, tc.level, diff)
		}
	}

	t.Run("RoundTrip", func(t *testing.T) {
		for _, g := range []struct {
			base  uint32
			level int
		}{{64, 2}, {16, 3}, {10, 4}, {2, 12}} {
			bl := uint32(1)
			for i := 0; i < g.level; i++ {
				bl *= g.base
			}
			for v := uint32(0); v < bl; v += 1 + bl/997 {
				var back uint32
				for _, d := range Decompose(v, g.base, g.level) {
					require.Less(t, d, g.base)
					back = back*g.base + d
				}
				require.Equal(t, v, back)
			}
		}
	})

	t.Run("Vector", func(t *testing.T) {
		got := DecomposeVector([]uint32{0x12, 0x34, 0x56}, 16, 2)
		require.Equal(t, []uint32{1, 2, 3, 4, 5, 6}, got)
		require.Empty(t, DecomposeVector(nil, 16, 2))
	})
}

func TestGadgetMatrix(t *testing.T) {
	for _, p := range []GadgetParameters{
		{LWEDimension: 4, Base: 64, Level: 2, Q: boolean.Modulus},
		{LWEDimension: 7, Base: 16, Level: 3, Q: boolean.Modulus},
		{LWEDimension: 3, Base: 10, Level: 4, Q: boolean.Modulus},
	} {
		require.NoError(t, p.Validate())
		gt := NewGadgetMatrix(p)
		for j := 0; j < p.Cols(); j++ {
			nonZero := 0
			for i := 0; i < p.Rows(); i++ {
				v := gt.At(i, j)
				inBlock := j*p.Level <= i && i < (j+1)*p.Level
				if !inBlock {
					require.Zero(t, v, "GT[%d][%d]", i, j)
					continue
				}
				want := uint32(p.Q / pow(p.Base, i-j*p.Level+1))
				require.Equal(t, want, v, "GT[%d][%d]", i, j)
				nonZero++
			}
			require.Equal(t, p.Level, nonZero)
		}
	}
}

func pow(b uint32, e int) uint64 {
	r := uint64(1)
	for i := 0; i < e; i++ {
		r *= uint64(b)
	}
	return r
}

func TestGadgetParametersValidate(t *testing.T) {
	q := boolean.Modulus
	testCases := []struct {
		name string
		p    GadgetParameters
		ok   bool
	}{
		{"base 64 level 2", GadgetParameters{10, 64, 2, q}, true},
		{"B^l equal to q", GadgetParameters{10, 1 << 16, 2, q}, true},
		{"B^l above q", GadgetParameters{10, 1 << 16, 3, q}, false},
		{"base 1", GadgetParameters{10, 1, 4, q}, false},
		{"level 0", GadgetParameters{10, 64, 0, q}, false},
		{"zero modulus", GadgetParameters{10, 64, 2, 0}, false},
		{"empty dimension", GadgetParameters{0, 64, 2, q}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.Validate()
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrInvalidParameters)
			}
		})
	}
}

func TestGadgetCache(t *testing.T) {
	cache := NewGadgetCache()
	p := GadgetParameters{LWEDimension: 16, Base: 64, Level: 2, Q: boolean.Modulus}

	var wg sync.WaitGroup
	got := make([]*GadgetMatrix, 8)
	errs := make([]error, len(got))
	for i := range got {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i], errs[i] = cache.Get(p)
		}()
	}
	wg.Wait()
	for i, gt := range got {
		require.NoError(t, errs[i])
		require.Same(t, got[0], gt)
	}
	require.Equal(t, 1, cache.Len())

	other := p
	other.Base = 16
	gt, err := cache.Get(other)
	require.NoError(t, err)
	require.NotSame(t, got[0], gt)
	require.Equal(t, 2, cache.Len())

	_, err = cache.Get(GadgetParameters{LWEDimension: 16, Base: 1, Level: 2, Q: boolean.Modulus})
	require.ErrorIs(t, err, ErrInvalidParameters)
}

func TestNamedParameters(t *testing.T) {
	for _, name := range ParameterSetNames() {
		lit, err := ParametersLiteralByName(name)
		require.NoError(t, err)
		params, err := NewParametersFromLiteral(lit)
		require.NoError(t, err)
		require.Equal(t, lit, params.Literal())
		require.Equal(t, params.Scheme().LWEDimension(), params.Gadget().LWEDimension)
	}
	_, err := ParametersLiteralByName("tfhe-io")
	require.ErrorIs(t, err, ErrUnknownParameters)
}
