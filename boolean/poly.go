// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package boolean

import (
	"github.com/luxfi/lattice/v7/ring"
)

// polyMultiplier computes negacyclic products of 2^32-torus polynomials by
// small integer polynomials. Both operands are lifted to centered integers,
// multiplied exactly in the NTT domain modulo a large prime, and the result
// is reduced back modulo 2^32. The caller guarantees that every coefficient
// of the exact product is smaller than half the prime.
type polyMultiplier struct {
	ringQ *ring.Ring
	q     uint64
	half  uint64
	tmp   ring.Poly
}

func newPolyMultiplier(params Parameters) *polyMultiplier {
	r := params.ringQ()
	q := params.paramsBR.Q()[0]
	return &polyMultiplier{
		ringQ: r,
		q:     q,
		half:  q >> 1,
		tmp:   r.NewPoly(),
	}
}

// torusToNTT lifts torus coefficients to centered integers and applies the NTT.
func (m *polyMultiplier) torusToNTT(src []uint32, dst ring.Poly) {
	coeffs := dst.Coeffs[0]
	for i, v := range src {
		if v >= Half {
			coeffs[i] = m.q - uint64(-v)
		} else {
			coeffs[i] = uint64(v)
		}
	}
	m.ringQ.NTT(dst, dst)
}

// smallToNTT lifts signed small coefficients and applies the NTT.
func (m *polyMultiplier) smallToNTT(src []int32, dst ring.Poly) {
	coeffs := dst.Coeffs[0]
	for i, v := range src {
		if v < 0 {
			coeffs[i] = m.q - uint64(-int64(v))
		} else {
			coeffs[i] = uint64(v)
		}
	}
	m.ringQ.NTT(dst, dst)
}

// addFromNTT applies the inverse NTT to src and adds the centered result
// to dst modulo 2^32. src is left untouched.
func (m *polyMultiplier) addFromNTT(src ring.Poly, dst []uint32) {
	m.ringQ.INTT(src, m.tmp)
	for i, c := range m.tmp.Coeffs[0][:len(dst)] {
		if c > m.half {
			dst[i] += uint32(c) - uint32(m.q)
		} else {
			dst[i] += uint32(c)
		}
	}
}

// mulAdd sets acc += a*b coefficient-wise in the NTT domain.
func (m *polyMultiplier) mulAdd(a, b, acc ring.Poly) {
	m.ringQ.MulCoeffsBarrettThenAdd(a, b, acc)
}

// mul sets acc = a*b coefficient-wise in the NTT domain.
func (m *polyMultiplier) mul(a, b, acc ring.Poly) {
	m.ringQ.MulCoeffsBarrett(a, b, acc)
}

// mulByMonomial sets dst = X^k * src in Z[X]/(X^N+1). dst and src must not alias.
func mulByMonomial(dst, src []uint32, k int) {
	n := len(src)
	k %= 2 * n
	if k < 0 {
		k += 2 * n
	}
	if k < n {
		for j := 0; j < n; j++ {
			if j+k < n {
				dst[j+k] = src[j]
			} else {
				dst[j+k-n] = -src[j]
			}
		}
		return
	}
	k -= n
	for j := 0; j < n; j++ {
		if j+k < n {
			dst[j+k] = -src[j]
		} else {
			dst[j+k-n] = src[j]
		}
	}
}
