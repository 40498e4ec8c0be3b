package evidence

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FingerprintFunc derives a display identifier from file metadata. It must be
// deterministic in (name, size). It is not a security guarantee.
type FingerprintFunc func(name string, size int64) string

// SignFunc derives the signature label stamped on a record at creation.
type SignFunc func(name string, createdAt time.Time) string

const (
	maxFingerprintDigits = 64
	maxSignatureDigits   = 32
)

// CharCodeFingerprint concatenates the hex character codes of name followed by
// the decimal size, truncated to 64 digits.
func CharCodeFingerprint(name string, size int64) string {
	return "0x" + charCodes(name+strconv.FormatInt(size, 10), maxFingerprintDigits)
}

// RollingFingerprint is a 32-bit multiplicative rolling hash over name and size.
func RollingFingerprint(name string, size int64) string {
	var h uint32
	for _, c := range name + strconv.FormatInt(size, 10) {
		h = h*31 + uint32(c)
	}
	return fmt.Sprintf("0x%08x", h)
}

// LabelSignature is a placeholder signature: the hex character codes of the
// file name and the creation time in milliseconds. It asserts nothing.
func LabelSignature(name string, createdAt time.Time) string {
	return "0xSIG" + charCodes(name+strconv.FormatInt(createdAt.UnixMilli(), 10), maxSignatureDigits)
}

func charCodes(s string, limit int) string {
	var b strings.Builder
	for _, c := range s {
		b.WriteString(strconv.FormatInt(int64(c), 16))
		if b.Len() >= limit {
			break
		}
	}
	out := b.String()
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
