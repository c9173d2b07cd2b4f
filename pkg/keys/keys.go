// Package keys loads the ed25519 keypair whose public half is embedded in
// a contract's initial data.
package keys

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

// Load reads a keypair from path. Accepted formats are a raw 64-byte
// secret-and-public file, a raw 32-byte seed and an OpenSSH ed25519
// private key.
func Load(path string) (ed25519.PrivateKey, error) {
	resolved, err := expandUserPath(path)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("read key %q: %w", resolved, err)
	}
	key, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse key %q: %w", resolved, err)
	}
	return key, nil
}

// Parse decodes key material in any of the formats accepted by Load.
func Parse(raw []byte) (ed25519.PrivateKey, error) {
	switch len(raw) {
	case ed25519.PrivateKeySize:
		key := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
		if !bytes.Equal(key[ed25519.SeedSize:], raw[ed25519.SeedSize:]) {
			return nil, fmt.Errorf("public half does not match the secret")
		}
		return key, nil
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	}

	parsed, err := ssh.ParseRawPrivateKey(raw)
	if err != nil {
		return nil, err
	}
	switch k := parsed.(type) {
	case *ed25519.PrivateKey:
		return *k, nil
	case ed25519.PrivateKey:
		return k, nil
	default:
		return nil, fmt.Errorf("unsupported key type %T, want ed25519", parsed)
	}
}

func expandUserPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(path)
}
