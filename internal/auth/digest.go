package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	// DigestSHA224 is the default token digest: hex(sha224(username + password)).
	DigestSHA224 = "sha224"
	// DigestBLAKE2b uses hex(blake2b-256(username + password)).
	DigestBLAKE2b = "blake2b"
)

// Digester derives a session token from credentials. It must be deterministic.
type Digester func(username, password string) string

// SHA224 is the Digester used unless configured otherwise.
func SHA224(username, password string) string {
	sum := sha256.Sum224(credentialBytes(username, password))
	return hex.EncodeToString(sum[:])
}

// BLAKE2b is an alternative Digester.
func BLAKE2b(username, password string) string {
	sum := blake2b.Sum256(credentialBytes(username, password))
	return hex.EncodeToString(sum[:])
}

// credentialBytes encodes username+password the way deployed clients derive
// tokens: code points up to U+00FF as one Latin-1 byte, larger ones as
// \uXXXX or \UXXXXXXXX escapes in lowercase hex. ASCII input is unchanged.
func credentialBytes(username, password string) []byte {
	s := username + password
	buf := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r <= 0xFF:
			buf = append(buf, byte(r))
		case r <= 0xFFFF:
			buf = fmt.Appendf(buf, "\\u%04x", r)
		default:
			buf = fmt.Appendf(buf, "\\U%08x", r)
		}
	}
	return buf
}

// NewDigester returns the Digester registered under name. Empty name means sha224.
func NewDigester(name string) (Digester, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", DigestSHA224:
		return SHA224, nil
	case DigestBLAKE2b:
		return BLAKE2b, nil
	default:
		return nil, fmt.Errorf("unknown token digest %q", name)
	}
}
