package transport

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// CurrentCanonicalVersion defines the canonicalization format version.
// Increment when canonicalization logic changes to invalidate stale cache entries.
const CurrentCanonicalVersion = "v1"

// keyNamespace seeds the name-based UUIDs used as idempotency keys.
var keyNamespace = uuid.MustParse("4f1d7c52-3b8e-4b8f-9d6a-7e2c5a0b9e34")

// IdemKey returns a deterministic key for the logical content of req.
// Equivalent requests (same operation, model, instructions, prompt,
// attachments and response mode) map to the same key. Leading and trailing
// whitespace of the prompt does not affect the key.
func IdemKey(req *Request) string {
	var b strings.Builder
	b.WriteString(CurrentCanonicalVersion)
	b.WriteByte('\x00')
	b.WriteString(string(req.Operation))
	b.WriteByte('\x00')
	b.WriteString(req.Model)
	b.WriteByte('\x00')
	b.WriteString(strings.TrimSpace(req.SystemInstruction))
	b.WriteByte('\x00')
	b.WriteString(strings.TrimSpace(req.Prompt))
	b.WriteByte('\x00')
	b.WriteString(strconv.FormatBool(req.JSONResponse))
	if req.Temperature != nil {
		fmt.Fprintf(&b, "\x00t=%g", *req.Temperature)
	}
	for _, a := range req.Attachments {
		sum := sha256.Sum256(a.Data)
		b.WriteByte('\x00')
		b.WriteString(a.MIMEType)
		b.WriteByte(':')
		b.WriteString(hex.EncodeToString(sum[:]))
	}
	return uuid.NewSHA1(keyNamespace, []byte(b.String())).String()
}

// CacheKey formats the storage key for a cached response.
// The key format is "examiner:llm:{operation}:{idemkey}".
func CacheKey(op Operation, idemKey string) string {
	return fmt.Sprintf("examiner:llm:%s:%s", op, idemKey)
}
