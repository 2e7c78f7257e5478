package service

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const credentialBytes = 32

// DeriveCredential returns the deterministic backend password of an external
// identity. It is recomputed on every login and never stored.
func DeriveCredential(secret []byte, namespace, externalID string) (string, error) {
	r := hkdf.New(sha256.New, secret, nil, []byte(namespace+":"+externalID))
	out := make([]byte, credentialBytes)
	if _, err := io.ReadFull(r, out); err != nil {
		return "", fmt.Errorf("derive credential: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// SyntheticEmail is the backend account key of an external identity.
func SyntheticEmail(namespace, externalID, domain string) string {
	return fmt.Sprintf("%s-%s@%s", namespace, strings.ToLower(externalID), domain)
}
