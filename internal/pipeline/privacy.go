package pipeline

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/Maybol283/EthoScraper/internal/config"
	"github.com/Maybol283/EthoScraper/internal/transform"
)

// stubReplacement substitutes pseudonymised values in Stub mode.
const stubReplacement = "[REDACTED]"

// redact applies a field's pseudonymisation directive, preserving the
// scalar/sequence shape by redacting each element. Anonymize is handled by
// the assembler, which omits the field entirely.
func redact(v transform.Value, privacy *config.Privacy) transform.Value {
	if privacy == nil || privacy.Mode == config.PseudonymiseNone {
		return v
	}

	switch privacy.Mode {
	case config.PseudonymiseStub:
		return replaceAll(v, func(string) string { return stubReplacement })
	case config.PseudonymiseSHA256:
		return replaceAll(v, func(s string) string {
			return hashValue(s, privacy.HashLength)
		})
	default:
		return v
	}
}

// replaceAll maps fn over the value's elements, keeping its shape.
func replaceAll(v transform.Value, fn func(string) string) transform.Value {
	items := v.Items()
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = fn(item)
	}
	if v.IsList() {
		return transform.Sequence(out)
	}
	if len(out) == 0 {
		return transform.Empty()
	}

	return transform.Scalar(out[0])
}

// hashValue returns the hex SHA-256 digest of s, truncated to length when
// length is positive and shorter than the full 64-character digest.
func hashValue(s string, length int) string {
	sum := sha256.Sum256([]byte(s))
	digest := hex.EncodeToString(sum[:])
	if length > 0 && length < len(digest) {
		return digest[:length]
	}

	return digest
}
