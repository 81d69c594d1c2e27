// Package fingerprint computes MinHash signatures over character n-grams
// for fast, approximate content similarity — used both as a pre-filter
// ahead of embedding comparison and as a first-class deduplication tool.
package fingerprint

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
)

// NGramSize is the character n-gram length signatures are computed over.
const NGramSize = 4

// SignatureLength is the number of 32-bit hash values in a signature.
const SignatureLength = 64

// ByteLength is the fixed serialized size of a Signature: SignatureLength
// uint32 values, big-endian.
const ByteLength = SignatureLength * 4

// Signature is a MinHash fingerprint: SignatureLength independent minimum
// hash values over the character n-gram shingles of some text.
type Signature [SignatureLength]uint32

// permutationSeeds are fixed odd multipliers used to derive SignatureLength
// independent hash functions from a single FNV-1a base hash, so the same
// input always produces the same signature across processes.
var permutationSeeds = func() [SignatureLength]uint64 {
	var seeds [SignatureLength]uint64
	x := uint64(0x9E3779B97F4A7C15)
	for i := range seeds {
		x = x*6364136223846793005 + 1442695040888963407
		if x%2 == 0 {
			x++
		}
		seeds[i] = x
	}
	return seeds
}()

// Compute returns the MinHash signature of text over character n-grams of
// length NGramSize. Short inputs (shorter than NGramSize) are shingled as
// a single n-gram equal to the whole input.
func Compute(text string) Signature {
	shingles := shingle(text, NGramSize)

	var sig Signature
	for i := range sig {
		sig[i] = ^uint32(0) // max value; any real shingle hash is smaller
	}
	if len(shingles) == 0 {
		return sig
	}

	for _, s := range shingles {
		base := fnvHash(s)
		for i, seed := range permutationSeeds {
			h := uint32((base ^ seed) * 2654435761)
			if h < sig[i] {
				sig[i] = h
			}
		}
	}
	return sig
}

func shingle(text string, n int) []string {
	r := []rune(text)
	if len(r) == 0 {
		return nil
	}
	if len(r) <= n {
		return []string{string(r)}
	}
	out := make([]string, 0, len(r)-n+1)
	for i := 0; i+n <= len(r); i++ {
		out = append(out, string(r[i:i+n]))
	}
	return out
}

func fnvHash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// EstimateJaccardSimilarity estimates the Jaccard similarity of the two
// underlying shingle sets as the fraction of signature positions where a
// and b agree.
func EstimateJaccardSimilarity(a, b Signature) float64 {
	agree := 0
	for i := range a {
		if a[i] == b[i] {
			agree++
		}
	}
	return float64(agree) / float64(SignatureLength)
}

// Marshal serializes a signature to its fixed-length big-endian byte form.
func Marshal(sig Signature) []byte {
	out := make([]byte, ByteLength)
	for i, v := range sig {
		binary.BigEndian.PutUint32(out[i*4:], v)
	}
	return out
}

// Unmarshal parses a fixed-length big-endian byte string back into a Signature.
func Unmarshal(b []byte) (Signature, error) {
	var sig Signature
	if len(b) != ByteLength {
		return sig, fmt.Errorf("fingerprint: expected %d bytes, got %d", ByteLength, len(b))
	}
	for i := range sig {
		sig[i] = binary.BigEndian.Uint32(b[i*4:])
	}
	return sig, nil
}
