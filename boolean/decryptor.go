// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package boolean

import "fmt"

// Decryptor decrypts LWE ciphertexts to boolean values
type Decryptor struct {
	params Parameters
	sk     *SecretKey
}

// NewDecryptor creates a new decryptor from secret key
func NewDecryptor(params Parameters, sk *SecretKey) *Decryptor {
	return &Decryptor{params: params, sk: sk}
}

// Phase returns b - <a, s> for an encrypted ciphertext.
func (dec *Decryptor) Phase(ct *Ciphertext) (uint32, error) {
	raw, err := ct.Raw()
	if err != nil {
		return 0, err
	}
	if len(raw) != dec.params.LWESize() {
		return 0, fmt.Errorf("%w: %d, want %d", ErrDimensionMismatch, len(raw), dec.params.LWESize())
	}
	return dec.phase(raw), nil
}

func (dec *Decryptor) phase(raw []uint32) uint32 {
	n := len(dec.sk.lwe)
	phase := raw[n]
	for i, s := range dec.sk.lwe {
		phase -= raw[i] * s
	}
	return phase
}

// Decrypt decrypts a ciphertext to a boolean. A phase in [0, q/2) means
// true. Trivial ciphertexts decrypt to their placeholder value and vectors
// of the wrong dimension to false; use DecryptChecked for ciphertexts from
// an untrusted party.
func (dec *Decryptor) Decrypt(ct *Ciphertext) bool {
	if ct.trivial {
		return ct.value
	}
	phase, err := dec.Phase(ct)
	if err != nil {
		return false
	}
	return phase < Half
}

// DecryptChecked decrypts an encrypted ciphertext, rejecting trivial
// ciphertexts and vectors that do not match the key dimension.
func (dec *Decryptor) DecryptChecked(ct *Ciphertext) (bool, error) {
	phase, err := dec.Phase(ct)
	if err != nil {
		return false, err
	}
	return phase < Half, nil
}

// DecryptBit returns the decrypted bit as int (0 or 1)
func (dec *Decryptor) DecryptBit(ct *Ciphertext) int {
	if dec.Decrypt(ct) {
		return 1
	}
	return 0
}

// DecryptByte decrypts 8 ciphertexts (LSB first) to a byte
func (dec *Decryptor) DecryptByte(cts []*Ciphertext) byte {
	var b byte
	for i := 0; i < 8 && i < len(cts); i++ {
		if dec.Decrypt(cts[i]) {
			b |= 1 << i
		}
	}
	return b
}
