// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package boolean

// gadget is a power-of-two signed decomposition over the 2^32 torus.
type gadget struct {
	baseLog int
	level   int
}

// factor returns q/Bg^(r+1), the weight of digit r.
func (g gadget) factor(r int) uint32 {
	return 1 << (LogModulus - (r+1)*g.baseLog)
}

// offset centers every digit in [-Bg/2, Bg/2) and rounds away the bits
// below the last level.
func (g gadget) offset() uint32 {
	var off uint32
	half := uint32(1) << (g.baseLog - 1)
	for r := 0; r < g.level; r++ {
		off += half * g.factor(r)
	}
	if rest := LogModulus - g.level*g.baseLog; rest > 0 {
		off += 1 << (rest - 1)
	}
	return off
}

// decompose writes the signed digits of v, most significant first, so that
// sum(digits[r] * factor(r)) approximates v modulo 2^32.
func (g gadget) decompose(v, offset uint32, digits []int32) {
	mask := uint32(1)<<g.baseLog - 1
	half := int32(1) << (g.baseLog - 1)
	t := v + offset
	for r := 0; r < g.level; r++ {
		shift := LogModulus - (r+1)*g.baseLog
		digits[r] = int32((t>>shift)&mask) - half
	}
}
