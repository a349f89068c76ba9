// Package secretbox seals installation credentials before they reach storage.
package secretbox

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
)

const sealedPrefix = "age:"

// Box encrypts to and decrypts with a single age X25519 identity. A zero Box (no key
// configured) passes values through unchanged.
type Box struct {
	identity *age.X25519Identity
}

// New parses an AGE-SECRET-KEY-1... identity. An empty key yields a pass-through box.
func New(key string) (*Box, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return &Box{}, nil
	}
	id, err := age.ParseX25519Identity(key)
	if err != nil {
		return nil, fmt.Errorf("invalid token key: %w", err)
	}
	return &Box{identity: id}, nil
}

func (b *Box) Enabled() bool {
	return b != nil && b.identity != nil
}

func (b *Box) Seal(plain string) (string, error) {
	if !b.Enabled() {
		return plain, nil
	}
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, b.identity.Recipient())
	if err != nil {
		return "", err
	}
	if _, err := io.WriteString(w, plain); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return sealedPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Open reverses Seal. Values written before a key was configured are returned as is.
func (b *Box) Open(stored string) (string, error) {
	if !strings.HasPrefix(stored, sealedPrefix) {
		return stored, nil
	}
	if !b.Enabled() {
		return "", fmt.Errorf("token is sealed but no token key is configured")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("decode sealed token: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(raw), b.identity)
	if err != nil {
		return "", fmt.Errorf("decrypt token: %w", err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
