// SPDX-License-Identifier: MIT
/*
Package bitint holds the power-of-two helpers used to size FFT windows and
visualization ring buffers.

	fftSize := bitint.NextPowerOfTwo(1000)  // 1024
	ok := bitint.IsPowerOfTwo(fftSize)      // true
	half := bitint.PrevPowerOfTwo(1000)     // 512

NextPowerOfTwo subtracts one before taking the bit length so that exact powers
of two map to themselves: 8-1 = 0b0111 has length 3, and 1<<3 = 8.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size. Non-positive input
// returns 1.
func NextPowerOfTwo(size int) int {
	if size <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// PrevPowerOfTwo returns the largest power of two <= size. Non-positive input
// returns 0.
func PrevPowerOfTwo(size int) int {
	if size <= 0 {
		return 0
	}
	return 1 << (bits.Len(uint(size)) - 1)
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns the exponent of a power of two, or -1 for anything else.
func Log2(n int) int {
	if !IsPowerOfTwo(n) {
		return -1
	}
	return bits.TrailingZeros(uint(n))
}
