package dupindex

import (
	"fmt"
	"math/bits"
	"strconv"
)

const hashBits = 64

// Bands splits hash into four 16-bit bands, from the most significant one.
func Bands(hash uint64) [4]int {
	return [4]int{
		int(hash >> 48 & 0xffff),
		int(hash >> 32 & 0xffff),
		int(hash >> 16 & 0xffff),
		int(hash & 0xffff),
	}
}

func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similarity maps a hamming distance to [0, 1], 1 means identical hashes.
func Similarity(distance int) float64 {
	return 1 - float64(distance)/hashBits
}

// FormatHash encodes hash as 16 hex digits, the database keeps hashes as
// text since some drivers cannot store an unsigned 64-bit integer.
func FormatHash(hash uint64) string {
	return fmt.Sprintf("%016x", hash)
}

func ParseHash(s string) (uint64, error) {
	return strconv.ParseUint(s, 16, 64)
}
