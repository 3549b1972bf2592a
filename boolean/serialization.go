// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package boolean

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
)

// ErrMalformed is returned when decoding truncated or inconsistent data.
var ErrMalformed = errors.New("boolean: malformed encoding")

// ========== Secret Key Serialization ==========

type secretKeyData struct {
	Params ParametersLiteral
	LWE    []uint32
	GLWE   []uint32
}

// MarshalBinary serializes the secret key to binary format
func (sk *SecretKey) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	data := secretKeyData{Params: sk.params.lit, LWE: sk.lwe, GLWE: sk.glwe}
	if err := gob.NewEncoder(&buf).Encode(&data); err != nil {
		return nil, fmt.Errorf("serialize secret key: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary deserializes the secret key from binary format
func (sk *SecretKey) UnmarshalBinary(b []byte) error {
	var data secretKeyData
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&data); err != nil {
		return fmt.Errorf("deserialize secret key: %w", err)
	}
	params, err := NewParametersFromLiteral(data.Params)
	if err != nil {
		return fmt.Errorf("deserialize secret key: %w", err)
	}
	if len(data.LWE) != params.LWEDimension() || len(data.GLWE) != params.N() {
		return fmt.Errorf("deserialize secret key: %w", ErrMalformed)
	}
	sk.params, sk.lwe, sk.glwe = params, data.LWE, data.GLWE
	return nil
}

// ========== Bootstrap Key Serialization ==========

type bootstrapKeyData struct {
	Params ParametersLiteral
	BSK    []uint32
	KSK    []uint32
}

// MarshalBinary serializes the bootstrap key in coefficient form. The NTT
// form is rebuilt on decoding.
func (bk *BootstrapKey) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	data := bootstrapKeyData{Params: bk.params.lit, BSK: bk.bsk, KSK: bk.ksk}
	if err := gob.NewEncoder(&buf).Encode(&data); err != nil {
		return nil, fmt.Errorf("serialize bootstrap key: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary deserializes the bootstrap key from binary format
func (bk *BootstrapKey) UnmarshalBinary(b []byte) error {
	var data bootstrapKeyData
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&data); err != nil {
		return fmt.Errorf("deserialize bootstrap key: %w", err)
	}
	params, err := NewParametersFromLiteral(data.Params)
	if err != nil {
		return fmt.Errorf("deserialize bootstrap key: %w", err)
	}
	N, rows := params.N(), 2*params.bskGadget().level
	if len(data.BSK) != params.LWEDimension()*rows*2*N ||
		len(data.KSK) != N*params.kskGadget().level*params.LWESize() {
		return fmt.Errorf("deserialize bootstrap key: %w", ErrMalformed)
	}
	bk.params, bk.bsk, bk.ksk = params, data.BSK, data.KSK
	bk.prepare()
	return nil
}

// ========== Ciphertext Serialization ==========

const (
	tagTrivialFalse byte = iota
	tagTrivialTrue
	tagEncrypted
)

// WriteTo writes the ciphertext as a tag byte followed, for encrypted
// ciphertexts, by a little-endian length and the raw vector.
func (ct *Ciphertext) WriteTo(w io.Writer) (int64, error) {
	switch {
	case ct.trivial && ct.value:
		n, err := w.Write([]byte{tagTrivialTrue})
		return int64(n), err
	case ct.trivial:
		n, err := w.Write([]byte{tagTrivialFalse})
		return int64(n), err
	}
	if _, err := w.Write([]byte{tagEncrypted}); err != nil {
		return 0, err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(ct.lwe))); err != nil {
		return 1, err
	}
	if err := binary.Write(w, binary.LittleEndian, ct.lwe); err != nil {
		return 5, err
	}
	return int64(5 + 4*len(ct.lwe)), nil
}

// ReadFrom decodes a ciphertext written by WriteTo.
func (ct *Ciphertext) ReadFrom(r io.Reader) (int64, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return 0, err
	}
	switch tag[0] {
	case tagTrivialFalse, tagTrivialTrue:
		*ct = Ciphertext{trivial: true, value: tag[0] == tagTrivialTrue}
		return 1, nil
	case tagEncrypted:
	default:
		return 1, fmt.Errorf("%w: ciphertext tag %d", ErrMalformed, tag[0])
	}
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return 1, err
	}
	if size == 0 || size > 1<<20 {
		return 5, fmt.Errorf("%w: ciphertext size %d", ErrMalformed, size)
	}
	raw := make([]uint32, size)
	if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
		return 5, err
	}
	*ct = Ciphertext{lwe: raw}
	return int64(5 + 4*size), nil
}

// MarshalBinary serializes the ciphertext to binary format
func (ct *Ciphertext) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := ct.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary deserializes the ciphertext from binary format
func (ct *Ciphertext) UnmarshalBinary(data []byte) error {
	_, err := ct.ReadFrom(bytes.NewReader(data))
	return err
}

// WriteCiphertexts writes a count followed by each ciphertext.
func WriteCiphertexts(w io.Writer, cts []*Ciphertext) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(cts))); err != nil {
		return err
	}
	for i, ct := range cts {
		if _, err := ct.WriteTo(w); err != nil {
			return fmt.Errorf("ciphertext %d: %w", i, err)
		}
	}
	return nil
}

// ReadCiphertexts reads a vector written by WriteCiphertexts.
func ReadCiphertexts(r io.Reader) ([]*Ciphertext, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	if count > 1<<24 {
		return nil, fmt.Errorf("%w: %d ciphertexts", ErrMalformed, count)
	}
	cts := make([]*Ciphertext, 0, min(count, 1024))
	for i := 0; i < int(count); i++ {
		ct := new(Ciphertext)
		if _, err := ct.ReadFrom(r); err != nil {
			return nil, fmt.Errorf("ciphertext %d: %w", i, err)
		}
		cts = append(cts, ct)
	}
	return cts, nil
}

// MarshalBits serializes a bit vector.
func MarshalBits(cts []*Ciphertext) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCiphertexts(&buf, cts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBits deserializes a bit vector.
func UnmarshalBits(data []byte) ([]*Ciphertext, error) {
	return ReadCiphertexts(bytes.NewReader(data))
}

// MarshalCorpus serializes a vector of encrypted characters.
func MarshalCorpus(corpus [][]*Ciphertext) ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(corpus))); err != nil {
		return nil, err
	}
	for i, bits := range corpus {
		if err := WriteCiphertexts(&buf, bits); err != nil {
			return nil, fmt.Errorf("character %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// UnmarshalCorpus deserializes a corpus written by MarshalCorpus.
func UnmarshalCorpus(data []byte) ([][]*Ciphertext, error) {
	r := bytes.NewReader(data)
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	if count > 1<<20 {
		return nil, fmt.Errorf("%w: %d characters", ErrMalformed, count)
	}
	corpus := make([][]*Ciphertext, 0, min(count, 1024))
	for i := 0; i < int(count); i++ {
		bits, err := ReadCiphertexts(r)
		if err != nil {
			return nil, fmt.Errorf("character %d: %w", i, err)
		}
		corpus = append(corpus, bits)
	}
	return corpus, nil
}
