// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package ohlg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/luxfi/ohlg/boolean"
)

// ErrMalformed is returned when decoding truncated or inconsistent data.
var ErrMalformed = errors.New("malformed encoding")

var coefficientMagic = [4]byte{'O', 'H', 'C', 'C'}

// maxCoefficientWords bounds the matrix size accepted by ReadFrom.
const maxCoefficientWords = 1 << 26

type gadgetHeader struct {
	Magic        [4]byte
	LWEDimension uint32
	Base         uint32
	Level        uint32
	Q            uint64
}

// WriteTo writes the gadget parameters followed by the matrix, little endian.
func (ct *CoefficientCiphertext) WriteTo(w io.Writer) (int64, error) {
	h := gadgetHeader{
		Magic:        coefficientMagic,
		LWEDimension: uint32(ct.params.LWEDimension),
		Base:         ct.params.Base,
		Level:        uint32(ct.params.Level),
		Q:            ct.params.Q,
	}
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return 0, err
	}
	if err := binary.Write(w, binary.LittleEndian, ct.data); err != nil {
		return int64(binary.Size(&h)), err
	}
	return int64(binary.Size(&h) + 4*len(ct.data)), nil
}

// ReadFrom decodes a coefficient ciphertext written by WriteTo.
func (ct *CoefficientCiphertext) ReadFrom(r io.Reader) (int64, error) {
	var h gadgetHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return 0, err
	}
	if h.Magic != coefficientMagic {
		return int64(binary.Size(&h)), fmt.Errorf("%w: bad coefficient ciphertext magic", ErrMalformed)
	}
	p := GadgetParameters{
		LWEDimension: int(h.LWEDimension),
		Base:         h.Base,
		Level:        int(h.Level),
		Q:            h.Q,
	}
	if err := p.Validate(); err != nil || p.LWEDimension > 1<<16 || p.Rows()*p.Cols() > maxCoefficientWords {
		return int64(binary.Size(&h)), fmt.Errorf("%w: coefficient ciphertext parameters %+v", ErrMalformed, p)
	}
	n := int64(binary.Size(&h))
	// grow row by row so that truncated input fails before a full allocation
	data := make([]uint32, 0, min(p.Rows(), 64)*p.Cols())
	row := make([]uint32, p.Cols())
	for i := 0; i < p.Rows(); i++ {
		if err := binary.Read(r, binary.LittleEndian, row); err != nil {
			return n, err
		}
		data = append(data, row...)
		n += int64(4 * len(row))
	}
	*ct = CoefficientCiphertext{params: p, data: data}
	return n, nil
}

// MarshalBinary serializes the coefficient ciphertext.
func (ct *CoefficientCiphertext) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := ct.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary deserializes a coefficient ciphertext. The embedded
// parameters are kept so that a later external product can reject a
// mismatch.
func (ct *CoefficientCiphertext) UnmarshalBinary(data []byte) error {
	_, err := ct.ReadFrom(bytes.NewReader(data))
	return err
}

// MarshalBinary serializes the sequence: the gate count, the coefficient
// ciphertexts, then the additive ciphertexts.
func (s *GateSequence) MarshalBinary() ([]byte, error) {
	n := s.Len()
	if n < 0 {
		return nil, fmt.Errorf("%w: %d multiplicative and %d additive parameters", ErrCascadeDesync, len(s.Mult), len(s.Add))
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint32(n)); err != nil {
		return nil, err
	}
	for i, ct := range s.Mult {
		if _, err := ct.WriteTo(&buf); err != nil {
			return nil, fmt.Errorf("gate %d: %w", i, err)
		}
	}
	if err := boolean.WriteCiphertexts(&buf, s.Add); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary deserializes a sequence written by MarshalBinary.
func (s *GateSequence) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return err
	}
	if n > 1<<20 {
		return fmt.Errorf("%w: %d gates", ErrMalformed, n)
	}
	mult := make([]*CoefficientCiphertext, 0, min(n, 1024))
	for i := 0; i < int(n); i++ {
		ct := new(CoefficientCiphertext)
		if _, err := ct.ReadFrom(r); err != nil {
			return fmt.Errorf("gate %d: %w", i, err)
		}
		mult = append(mult, ct)
	}
	add, err := boolean.ReadCiphertexts(r)
	if err != nil {
		return err
	}
	if len(add) != len(mult) {
		return fmt.Errorf("%w: %d multiplicative and %d additive parameters", ErrCascadeDesync, len(mult), len(add))
	}
	s.Mult, s.Add = mult, add
	return nil
}

// CheckSequence verifies that every coefficient ciphertext of seq was built
// for the context parameters.
func (c *Context) CheckSequence(seq *GateSequence) error {
	if seq.Len() < 0 {
		return fmt.Errorf("%w: %d multiplicative and %d additive parameters", ErrCascadeDesync, len(seq.Mult), len(seq.Add))
	}
	for i, ct := range seq.Mult {
		if ct == nil || ct.params != c.params.gadget {
			return fmt.Errorf("gate %d: %w", i, ErrParameterMismatch)
		}
	}
	return nil
}
