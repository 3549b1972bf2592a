// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package boolean

import (
	"github.com/luxfi/lattice/v7/ring"
)

// SecretKey contains the LWE key and the GLWE key used by blind rotation.
type SecretKey struct {
	params Parameters
	// lwe is the binary LWE key of dimension n.
	lwe []uint32
	// glwe holds the binary coefficients of the GLWE key polynomial.
	glwe []uint32
}

// Params returns the parameters the key was generated for.
func (sk *SecretKey) Params() Parameters {
	return sk.params
}

// BootstrapKey contains the public material needed for bootstrapping.
type BootstrapKey struct {
	params Parameters
	// bsk holds n GGSW ciphertexts of 2l rows, each row a GLWE pair (a, b)
	// of N coefficients, laid out [i][row][a|b][coeff].
	bsk []uint32
	// ksk holds N*l_ks LWE encryptions of z_j * q/Bks^(r+1) under the LWE key,
	// laid out [j][r][n+1].
	ksk []uint32

	// bskNTT is bsk lifted to the NTT domain, rebuilt after decoding.
	bskNTT []ring.Poly
}

// Params returns the parameters the key was generated for.
func (bk *BootstrapKey) Params() Parameters {
	return bk.params
}

// KeyGenerator generates keys
type KeyGenerator struct {
	params Parameters
	prng   *sampler
}

// NewKeyGenerator creates a new key generator
func NewKeyGenerator(params Parameters) *KeyGenerator {
	return &KeyGenerator{params: params, prng: newSampler(params)}
}

// GenSecretKey generates a new binary secret key pair
func (kg *KeyGenerator) GenSecretKey() *SecretKey {
	sk := &SecretKey{
		params: kg.params,
		lwe:    make([]uint32, kg.params.LWEDimension()),
		glwe:   make([]uint32, kg.params.N()),
	}
	for i := range sk.lwe {
		sk.lwe[i] = kg.prng.binary()
	}
	for i := range sk.glwe {
		sk.glwe[i] = kg.prng.binary()
	}
	return sk
}

// GenBootstrapKey generates the bootstrap and key switching keys from sk.
func (kg *KeyGenerator) GenBootstrapKey(sk *SecretKey) *BootstrapKey {
	p := kg.params
	n, N := p.LWEDimension(), p.N()
	g := p.bskGadget()
	rows := 2 * g.level

	bk := &BootstrapKey{
		params: p,
		bsk:    make([]uint32, n*rows*2*N),
		ksk:    make([]uint32, N*p.kskGadget().level*p.LWESize()),
	}

	mul := newPolyMultiplier(p)
	zNTT := mul.ringQ.NewPoly()
	small := make([]int32, N)
	for i, v := range sk.glwe {
		small[i] = int32(v)
	}
	mul.smallToNTT(small, zNTT)
	aNTT := mul.ringQ.NewPoly()

	for i := 0; i < n; i++ {
		for row := 0; row < rows; row++ {
			off := ((i*rows + row) * 2) * N
			a := bk.bsk[off : off+N]
			b := bk.bsk[off+N : off+2*N]

			// GLWE encryption of zero: b = a*z + e
			kg.prng.uniformVec(a)
			for j := range b {
				b[j] = kg.prng.gaussian(p.lit.GLWENoiseStd)
			}
			mul.torusToNTT(a, aNTT)
			mul.mul(aNTT, zNTT, aNTT)
			mul.addFromNTT(aNTT, b)

			// plus s_i times the gadget row on the a or b component
			if row < g.level {
				a[0] += sk.lwe[i] * g.factor(row)
			} else {
				b[0] += sk.lwe[i] * g.factor(row-g.level)
			}
		}
	}

	ks := p.kskGadget()
	size := p.LWESize()
	for j := 0; j < N; j++ {
		for r := 0; r < ks.level; r++ {
			off := (j*ks.level + r) * size
			kg.encryptRaw(sk, bk.ksk[off:off+size], sk.glwe[j]*ks.factor(r))
		}
	}

	bk.prepare()
	return bk
}

// encryptRaw writes an LWE encryption of m under the LWE key into dst.
func (kg *KeyGenerator) encryptRaw(sk *SecretKey, dst []uint32, m uint32) {
	encryptLWE(kg.prng, sk.lwe, kg.params.lit.LWENoiseStd, dst, m)
}

// prepare lifts the bootstrap key to the NTT domain.
func (bk *BootstrapKey) prepare() {
	p := bk.params
	N := p.N()
	mul := newPolyMultiplier(p)
	count := len(bk.bsk) / N
	bk.bskNTT = make([]ring.Poly, count)
	for k := 0; k < count; k++ {
		bk.bskNTT[k] = mul.ringQ.NewPoly()
		mul.torusToNTT(bk.bsk[k*N:(k+1)*N], bk.bskNTT[k])
	}
}

// encryptLWE sets dst = (a, <a,s> + m + e) with a uniform.
func encryptLWE(prng *sampler, key []uint32, sigma float64, dst []uint32, m uint32) {
	n := len(key)
	prng.uniformVec(dst[:n])
	var body uint32
	for i, s := range key {
		body += dst[i] * s
	}
	dst[n] = body + m + prng.gaussian(sigma)
}
