package configstore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

const authTokenFile = "auth_token.txt"

// EnsureAuthToken loads the control-plane bearer token from
// <dir>/auth_token.txt, generating one on first startup (32 random
// bytes, hex-encoded to 64 characters) with permissions restricted to
// the owner. The file lives alongside, not inside, the four config
// categories, so it is never picked up by CategoryIDs/bundle export
// (spec §4.10: "must not appear in exports").
func EnsureAuthToken(dir string) (string, error) {
	path := filepath.Join(dir, authTokenFile)
	data, err := os.ReadFile(path)
	if err == nil {
		return string(data), nil
	}
	if !os.IsNotExist(err) {
		return "", fmt.Errorf("configstore: read auth token: %w", err)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("configstore: generate auth token: %w", err)
	}
	token := hex.EncodeToString(buf)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("configstore: mkdir %s: %w", dir, err)
	}
	if err := os.WriteFile(path, []byte(token), 0o600); err != nil {
		return "", fmt.Errorf("configstore: write auth token: %w", err)
	}
	return token, nil
}
