// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package prime provides the global, process-wide prime sieve that the
// open-addressing map uses to keep its bucket count prime, which is what
// lets quadratic probing visit every slot before repeating.
package prime

import (
	"math/bits"
	"sync"
)

// sieveLimit is the upper bound of the precomputed sieve; 1<<20 covers any
// bucket count a map reaches through doubling growth in practice.
const sieveLimit = 1 << 20

var (
	sieveOnce sync.Once
	isPrime   []bool
)

// initSieve builds a sieve of Eratosthenes up to sieveLimit exactly once;
// concurrent first callers all block on the same sync.Once.
func initSieve() {
	sieveOnce.Do(func() {
		isPrime = make([]bool, sieveLimit+1)
		for i := 2; i <= sieveLimit; i++ {
			isPrime[i] = true
		}
		for i := 2; i*i <= sieveLimit; i++ {
			if !isPrime[i] {
				continue
			}
			for j := i * i; j <= sieveLimit; j += i {
				isPrime[j] = false
			}
		}
	})
}

// FindNextPrime returns the smallest prime p >= n. For n within the sieve's
// range this is a table scan; for larger n (well past any capacity the
// map's doubling growth would realistically reach) it falls back to an
// on-demand Miller-Rabin test.
func FindNextPrime(n int) int {
	if n < 2 {
		return 2
	}
	initSieve()
	if n <= sieveLimit {
		for i := n; i <= sieveLimit; i++ {
			if isPrime[i] {
				return i
			}
		}
	}
	for i := n; ; i++ {
		if isProbablePrime(i) {
			return i
		}
	}
}

// isProbablePrime runs a deterministic Miller-Rabin test using witnesses
// sufficient to be exact for any 64-bit input.
func isProbablePrime(n int) bool {
	if n < 2 {
		return false
	}
	for _, p := range [...]int{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37} {
		if n == p {
			return true
		}
		if n%p == 0 {
			return false
		}
	}

	d := n - 1
	r := 0
	for d%2 == 0 {
		d /= 2
		r++
	}

	witnesses := [...]uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37}
	for _, a := range witnesses {
		if uint64(n) <= a {
			continue
		}
		if !millerRabinRound(uint64(n), uint64(d), r, a) {
			return false
		}
	}
	return true
}

func millerRabinRound(n, d uint64, r int, a uint64) bool {
	x := powMod(a, d, n)
	if x == 1 || x == n-1 {
		return true
	}
	for i := 0; i < r-1; i++ {
		x = mulMod(x, x, n)
		if x == n-1 {
			return true
		}
	}
	return false
}

func powMod(base, exp, mod uint64) uint64 {
	result := uint64(1)
	base %= mod
	for exp > 0 {
		if exp&1 == 1 {
			result = mulMod(result, base, mod)
		}
		base = mulMod(base, base, mod)
		exp >>= 1
	}
	return result
}

// mulMod computes a*b mod m exactly for any a, b < m, going through a
// 128-bit intermediate product. bits.Div64 requires the high word to be
// below the divisor, which a, b < m guarantees.
func mulMod(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	_, rem := bits.Div64(hi, lo, m)
	return rem
}
