// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package ohlg

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/luxfi/ohlg/boolean"
)

const testCorpus = "ABCDEFGHIJ"

var (
	seqOnce sync.Once
	testSeq *GateSequence
	seqErr  error
)

// matchSequence encrypts the gate sequence for testCorpus once.
func matchSequence(t *testing.T, ctx *Context, enc *boolean.Encryptor) *GateSequence {
	t.Helper()
	seqOnce.Do(func() {
		testSeq, seqErr = ctx.EncryptSequence(MatchSchedule(len(testCorpus), 8), enc)
	})
	require.NoError(t, seqErr)
	return testSeq
}

func TestMatchSchedule(t *testing.T) {
	require.Equal(t, 159, MatchGateCount(10, 8))
	require.Equal(t, 0, MatchGateCount(0, 8))
	require.Equal(t, 1, MatchGateCount(1, 1))

	gates := MatchSchedule(2, 3)
	require.Equal(t, []Gate{
		GateXNOR, GateXNOR, GateAND, GateXNOR, GateAND,
		GateXNOR, GateXNOR, GateAND, GateXNOR, GateAND, GateOR,
	}, gates)
	require.Len(t, gates, MatchGateCount(2, 3))

	schedule := MatchSchedule(10, 8)
	require.Len(t, schedule, 159)
	for c := 1; c < 10; c++ {
		require.Equal(t, GateXNOR, schedule[charOffset(c, 8)])
		require.Equal(t, GateOR, schedule[charOffset(c, 8)+15])
	}
}

func TestMatch(t *testing.T) {
	ctx, sk, bsk := setupTest(t)
	params := ctx.Params().Scheme()
	enc := boolean.NewEncryptor(params, sk)
	dec := boolean.NewDecryptor(params, sk)
	ge := NewGateEvaluator(ctx, bsk)

	seq := matchSequence(t, ctx, enc)
	corpus := enc.EncryptBytes([]byte(testCorpus))

	testCases := []struct {
		query byte
		want  bool
	}{
		{'C', true},
		{'Z', false},
	}
	if !testing.Short() {
		testCases = append(testCases, struct {
			query byte
			want  bool
		}{'J', true})
	}

	for _, tc := range testCases {
		t.Run(string(tc.query), func(t *testing.T) {
			res, err := ge.Match(enc.EncryptByte(tc.query), corpus, seq)
			require.NoError(t, err)
			require.Equal(t, 159, res.GatesConsumed)
			require.Equal(t, tc.want, dec.Decrypt(res.Result))
		})
	}
}

func TestMatchDesync(t *testing.T) {
	ctx, sk, bsk := setupTest(t)
	enc := boolean.NewEncryptor(ctx.Params().Scheme(), sk)
	ge := NewGateEvaluator(ctx, bsk)

	query := enc.EncryptByte('A')[:2]
	corpus := [][]*boolean.Ciphertext{
		enc.EncryptByte('A')[:2],
		enc.EncryptByte('B')[:2],
	}
	full, err := ctx.EncryptSequence(MatchSchedule(2, 2), enc)
	require.NoError(t, err)
	require.Equal(t, 7, full.Len())

	t.Run("Short", func(t *testing.T) {
		seq := &GateSequence{Mult: full.Mult[:6], Add: full.Add[:6]}
		_, err := ge.Match(query, corpus, seq)
		require.ErrorIs(t, err, ErrCascadeDesync)
	})

	t.Run("Long", func(t *testing.T) {
		seq := &GateSequence{
			Mult: append(append([]*CoefficientCiphertext(nil), full.Mult...), full.Mult[0]),
			Add:  append(append([]*boolean.Ciphertext(nil), full.Add...), full.Add[0]),
		}
		_, err := ge.Match(query, corpus, seq)
		require.ErrorIs(t, err, ErrCascadeDesync)
	})

	t.Run("Misaligned", func(t *testing.T) {
		seq := &GateSequence{Mult: full.Mult, Add: full.Add[:5]}
		_, err := ge.Match(query, corpus, seq)
		require.ErrorIs(t, err, ErrCascadeDesync)
	})

	t.Run("OneOperandEntry", func(t *testing.T) {
		buf, err := ctx.EncryptGate(GateBuffer, enc)
		require.NoError(t, err)
		seq := new(GateSequence)
		seq.Append(buf)
		_, err = ge.Match(query[:1], [][]*boolean.Ciphertext{corpus[0][:1]}, seq)
		require.ErrorIs(t, err, ErrCascadeDesync)

		holed := &GateSequence{
			Mult: append([]*CoefficientCiphertext(nil), full.Mult...),
			Add:  full.Add,
		}
		holed.Mult[3] = nil
		_, err = ge.Match(query, corpus, holed)
		require.ErrorIs(t, err, ErrCascadeDesync)
		_, err = NewMatcher(ctx, bsk, WithWorkers(2)).Match(context.Background(), query, corpus, holed)
		require.ErrorIs(t, err, ErrCascadeDesync)
	})

	t.Run("InvalidQuery", func(t *testing.T) {
		_, err := ge.Match(nil, corpus, full)
		require.ErrorIs(t, err, ErrInvalidQuery)
		_, err = ge.Match(query, [][]*boolean.Ciphertext{query[:1]}, full)
		require.ErrorIs(t, err, ErrInvalidQuery)
	})

	t.Run("TrivialCorpus", func(t *testing.T) {
		bad := [][]*boolean.Ciphertext{
			{boolean.NewTrivialCiphertext(true), corpus[0][1]},
			corpus[1],
		}
		_, err := ge.Match(query, bad, full)
		require.ErrorIs(t, err, boolean.ErrTrivialCiphertext)
	})
}

func TestParallelMatch(t *testing.T) {
	if testing.Short() {
		t.Skip("parallel match runs a full cascade")
	}
	ctx, sk, bsk := setupTest(t)
	params := ctx.Params().Scheme()
	enc := boolean.NewEncryptor(params, sk)
	dec := boolean.NewDecryptor(params, sk)

	seq := matchSequence(t, ctx, enc)
	corpus := enc.EncryptBytes([]byte(testCorpus))
	m := NewMatcher(ctx, bsk, WithWorkers(4), WithLogger(zaptest.NewLogger(t)))

	for _, tc := range []struct {
		query byte
		want  bool
	}{{'E', true}, {'z', false}} {
		res, err := m.Match(context.Background(), enc.EncryptByte(tc.query), corpus, seq)
		require.NoError(t, err)
		require.Equal(t, 159, res.GatesConsumed)
		require.Equal(t, tc.want, dec.Decrypt(res.Result), "query %q", tc.query)
	}

	t.Run("Desync", func(t *testing.T) {
		short := &GateSequence{Mult: seq.Mult[:158], Add: seq.Add[:158]}
		_, err := m.Match(context.Background(), enc.EncryptByte('A'), corpus, short)
		require.ErrorIs(t, err, ErrCascadeDesync)
	})

	t.Run("Canceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := m.Match(cctx, enc.EncryptByte('A'), corpus, seq)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestSequenceSerialization(t *testing.T) {
	ctx, sk, _ := setupTest(t)
	enc := boolean.NewEncryptor(ctx.Params().Scheme(), sk)

	seq, err := ctx.EncryptSequence([]Gate{GateNAND, GateXOR}, enc)
	require.NoError(t, err)
	data, err := seq.MarshalBinary()
	require.NoError(t, err)

	var got GateSequence
	require.NoError(t, got.UnmarshalBinary(data))
	require.Equal(t, seq.Len(), got.Len())
	require.Equal(t, seq.Mult[1].data, got.Mult[1].data)
	require.NoError(t, ctx.CheckSequence(&got))

	// a sequence built for other gadget parameters is rejected
	lit := InsecureTestParams
	lit.DecompBase, lit.DecompLevel = 16, 3
	params, err := NewParametersFromLiteral(lit)
	require.NoError(t, err)
	other, err := NewContext(params, nil)
	require.NoError(t, err)
	require.ErrorIs(t, other.CheckSequence(&got), ErrParameterMismatch)

	var ct CoefficientCiphertext
	require.ErrorIs(t, ct.UnmarshalBinary(append([]byte("XXXX"), data[4:40]...)), ErrMalformed)

	_, err = ctx.EncryptSequence([]Gate{GateNOT}, enc)
	require.Error(t, err)
}
