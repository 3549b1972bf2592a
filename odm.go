// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package ohlg

import (
	"errors"
	"fmt"

	"github.com/luxfi/ohlg/boolean"
)

var (
	// ErrCascadeDesync is returned when the gate sequence does not line up
	// with the gates the cascade evaluates.
	ErrCascadeDesync = errors.New("gate parameter cascade out of sync")
	// ErrInvalidQuery is returned for an empty query or corpus, or a corpus
	// character whose width differs from the query.
	ErrInvalidQuery = errors.New("invalid query or corpus")
)

// MatchGateCount returns the number of gates a match of one query
// character against chars corpus characters of bits bits consumes:
// chars*bits XNORs, chars*(bits-1) ANDs and chars-1 ORs.
func MatchGateCount(chars, bits int) int {
	if chars < 1 || bits < 1 {
		return 0
	}
	return chars*bits + chars*(bits-1) + chars - 1
}

// MatchSchedule returns the gates of a match in consumption order. For
// each character: one XNOR per bit, each XNOR after the first followed by
// an AND, then an OR for every character but the first.
func MatchSchedule(chars, bits int) []Gate {
	gates := make([]Gate, 0, MatchGateCount(chars, bits))
	for c := 0; c < chars; c++ {
		for b := 0; b < bits; b++ {
			gates = append(gates, GateXNOR)
			if b != 0 {
				gates = append(gates, GateAND)
			}
		}
		if c != 0 {
			gates = append(gates, GateOR)
		}
	}
	return gates
}

// charOffset returns the index of the first gate of character c.
func charOffset(c, bits int) int {
	off := c * (2*bits - 1)
	if c > 0 {
		off += c - 1
	}
	return off
}

// GateSequence holds encrypted gate parameters as two index-aligned
// sequences. Entry i of Mult and Add together select gate i.
type GateSequence struct {
	Mult []*CoefficientCiphertext
	Add  []*boolean.Ciphertext
}

// Len returns the number of gates, or -1 if the sequences are misaligned.
func (s *GateSequence) Len() int {
	if len(s.Mult) != len(s.Add) {
		return -1
	}
	return len(s.Mult)
}

// Append adds a two-operand gate.
func (s *GateSequence) Append(p GateParams) {
	s.Mult = append(s.Mult, p.A)
	s.Add = append(s.Add, p.D)
}

// At returns gate i, failing if i is past the end of either sequence or
// entry i lacks either of its parameters.
func (s *GateSequence) At(i int) (GateParams, error) {
	if i < 0 || i >= len(s.Mult) || i >= len(s.Add) {
		return GateParams{}, fmt.Errorf("%w: gate %d of %d/%d", ErrCascadeDesync, i, len(s.Mult), len(s.Add))
	}
	if s.Mult[i] == nil || s.Add[i] == nil {
		return GateParams{}, fmt.Errorf("%w: gate %d is not a two-operand gate", ErrCascadeDesync, i)
	}
	return GateParams{A: s.Mult[i], D: s.Add[i]}, nil
}

// EncryptSequence encrypts gates in order. Only two-operand gates can be
// sequenced.
func (c *Context) EncryptSequence(gates []Gate, enc *boolean.Encryptor) (*GateSequence, error) {
	seq := &GateSequence{
		Mult: make([]*CoefficientCiphertext, 0, len(gates)),
		Add:  make([]*boolean.Ciphertext, 0, len(gates)),
	}
	for i, g := range gates {
		if g.Arity() != 2 {
			return nil, fmt.Errorf("gate %d: %v takes one operand", i, g)
		}
		p, err := c.EncryptGate(g, enc)
		if err != nil {
			return nil, fmt.Errorf("gate %d: %w", i, err)
		}
		seq.Append(p)
	}
	return seq, nil
}

// cursor walks a gate sequence in consumption order.
type cursor struct {
	seq  *GateSequence
	next int
}

func (cur *cursor) take() (GateParams, error) {
	p, err := cur.seq.At(cur.next)
	if err != nil {
		return GateParams{}, err
	}
	cur.next++
	return p, nil
}

// MatchResult is the encrypted outcome of a match.
type MatchResult struct {
	// Result encrypts true iff the query occurs in the corpus.
	Result *boolean.Ciphertext
	// GatesConsumed is the number of gate parameter pairs used.
	GatesConsumed int
}

func validateQuery(query []*boolean.Ciphertext, corpus [][]*boolean.Ciphertext) error {
	if len(query) == 0 || len(corpus) == 0 {
		return fmt.Errorf("%w: %d query bits, %d corpus characters", ErrInvalidQuery, len(query), len(corpus))
	}
	for c, char := range corpus {
		if len(char) != len(query) {
			return fmt.Errorf("%w: character %d has %d bits, query has %d", ErrInvalidQuery, c, len(char), len(query))
		}
	}
	return nil
}

// matchChar compares one corpus character against the query: the XNOR of
// bit 0 seeds the accumulator and every later XNOR is ANDed into it.
func (ge *GateEvaluator) matchChar(query, char []*boolean.Ciphertext, cur *cursor) (*boolean.Ciphertext, error) {
	var acc *boolean.Ciphertext
	for b := range query {
		p, err := cur.take()
		if err != nil {
			return nil, err
		}
		eq, err := ge.ObliviousGate2(query[b], char[b], p.A, p.D)
		if err != nil {
			return nil, fmt.Errorf("bit %d: %w", b, err)
		}
		if b == 0 {
			acc = eq
			continue
		}
		if p, err = cur.take(); err != nil {
			return nil, err
		}
		if acc, err = ge.ObliviousGate2(acc, eq, p.A, p.D); err != nil {
			return nil, fmt.Errorf("bit %d: %w", b, err)
		}
	}
	return acc, nil
}

// Match runs the Oblivious Direct Matching cascade: bitwise XNOR of the
// query against each corpus character, AND-reduced per character and
// OR-reduced across the corpus, consuming seq in order. The whole
// sequence must be consumed.
func (ge *GateEvaluator) Match(query []*boolean.Ciphertext, corpus [][]*boolean.Ciphertext, seq *GateSequence) (*MatchResult, error) {
	if err := validateQuery(query, corpus); err != nil {
		return nil, err
	}
	if seq.Len() < 0 {
		return nil, fmt.Errorf("%w: %d multiplicative and %d additive parameters", ErrCascadeDesync, len(seq.Mult), len(seq.Add))
	}

	cur := &cursor{seq: seq}
	var result *boolean.Ciphertext
	for c, char := range corpus {
		found, err := ge.matchChar(query, char, cur)
		if err != nil {
			return nil, fmt.Errorf("character %d: %w", c, err)
		}
		if c == 0 {
			result = found
			continue
		}
		p, err := cur.take()
		if err != nil {
			return nil, fmt.Errorf("character %d: %w", c, err)
		}
		if result, err = ge.ObliviousGate2(result, found, p.A, p.D); err != nil {
			return nil, fmt.Errorf("character %d: %w", c, err)
		}
	}

	if cur.next != seq.Len() {
		return nil, fmt.Errorf("%w: consumed %d of %d gates", ErrCascadeDesync, cur.next, seq.Len())
	}
	return &MatchResult{Result: result, GatesConsumed: cur.next}, nil
}
