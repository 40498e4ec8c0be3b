package core

import "github.com/mr-tron/base58"

// ContentID returns the CIDv0 form of a sha256 digest: base58 of the
// multihash (0x12 sha2-256, 0x20 length, digest). It always starts with "Qm".
func ContentID(digest []byte) string {
	mh := make([]byte, 0, 2+len(digest))
	mh = append(mh, 0x12, byte(len(digest)))
	mh = append(mh, digest...)
	return base58.Encode(mh)
}
