package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Seed files hold a hex-encoded 32-byte ed25519 seed, one line, 0600.

// GenerateEd25519Seed returns a fresh random seed.
func GenerateEd25519Seed() ([]byte, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, err
	}
	return seed, nil
}

// SaveEd25519Seed writes a seed file. It refuses to overwrite.
func SaveEd25519Seed(path string, seed []byte) error {
	if len(seed) != ed25519.SeedSize {
		return fmt.Errorf("keys: seed must be %d bytes", ed25519.SeedSize)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("keys: refusing to overwrite %s", path)
	}
	return os.WriteFile(path, []byte(hex.EncodeToString(seed)+"\n"), 0o600)
}

// LoadEd25519 reads a seed file and returns the private key.
func LoadEd25519(path string) (ed25519.PrivateKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := strings.TrimSpace(string(b))
	seed, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("keys: %s is not a hex seed file: %w", path, err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, errors.New("keys: seed file has wrong length")
	}
	return ed25519.NewKeyFromSeed(seed), nil
}
