// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package boolean

// Encryptor encrypts boolean values into LWE ciphertexts.
// It is not safe for concurrent use.
type Encryptor struct {
	params Parameters
	sk     *SecretKey
	prng   *sampler
}

// NewEncryptor creates a new encryptor from secret key
func NewEncryptor(params Parameters, sk *SecretKey) *Encryptor {
	return &Encryptor{params: params, sk: sk, prng: newSampler(params)}
}

// Encrypt encrypts a boolean value as +q/8 (true) or -q/8 (false).
func (enc *Encryptor) Encrypt(value bool) *Ciphertext {
	if value {
		return enc.EncryptAbs(Eighth)
	}
	return enc.EncryptAbs(MinusEighth)
}

// EncryptAbs encrypts an arbitrary value of the ring modulo 2^32, bypassing
// the boolean encoding.
func (enc *Encryptor) EncryptAbs(m uint32) *Ciphertext {
	raw := make([]uint32, enc.params.LWESize())
	encryptLWE(enc.prng, enc.sk.lwe, enc.params.lit.LWENoiseStd, raw, m)
	return NewCiphertextFromRaw(raw)
}

// EncryptZero returns a fresh encryption of 0.
func (enc *Encryptor) EncryptZero() *Ciphertext {
	return enc.EncryptAbs(0)
}

// EncryptByte encrypts a byte as 8 ciphertexts (LSB first)
func (enc *Encryptor) EncryptByte(b byte) []*Ciphertext {
	cts := make([]*Ciphertext, 8)
	for i := range cts {
		cts[i] = enc.Encrypt((b>>i)&1 == 1)
	}
	return cts
}

// EncryptBytes encrypts every byte of data with EncryptByte.
func (enc *Encryptor) EncryptBytes(data []byte) [][]*Ciphertext {
	out := make([][]*Ciphertext, len(data))
	for i, b := range data {
		out[i] = enc.EncryptByte(b)
	}
	return out
}
