package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// hashSeparator joins canonical fields before digesting. The ASCII unit
// separator never survives the chunker's whitespace normalization and
// keeps field boundaries unambiguous ("ab"+"c" never hashes like
// "a"+"bc").
const hashSeparator = "\x1f"

// Fingerprint computes the deterministic content hash of an entry:
// sha256 over kind, title and the redacted free-text fields in a fixed
// order, rendered as lowercase hex. Two requests producing the same
// fingerprint are the same logical entry.
func Fingerprint(kind Kind, title string, redactedFields ...string) string {
	h := sha256.New()
	_, _ = io.WriteString(h, string(kind))
	_, _ = io.WriteString(h, hashSeparator)
	_, _ = io.WriteString(h, title)
	for _, f := range redactedFields {
		_, _ = io.WriteString(h, hashSeparator)
		_, _ = io.WriteString(h, f)
	}
	return hex.EncodeToString(h.Sum(nil))
}
