package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
)

// Argon2id parameters, per the OWASP recommended minimums.
const (
	memory      = 19 * 1024 // KiB
	iterations  = 2
	parallelism = 1
	keyLength   = 32
	saltLength  = 16
)

var (
	pepper     string
	pepperFile string
)

// SetPepperPath points the package at the file holding the site-wide pepper.
// Must be called before the first hash or verify.
func SetPepperPath(file string) {
	pepperFile = file
}

// GetPepper lazily loads the pepper, creating the file with a fresh random
// value on first use. A pepper that cannot be read or written is fatal since
// every stored hash depends on it.
func GetPepper() string {
	if pepper != "" {
		return pepper
	}

	loaded, err := readOrCreatePepper()
	if err != nil {
		slog.Error("failed to load or generate pepper", slog.Any("err", err))
		os.Exit(1)
	}
	pepper = loaded

	return pepper
}

func readOrCreatePepper() (string, error) {
	pepperFile = filepath.Clean(pepperFile)
	if err := os.MkdirAll(filepath.Dir(pepperFile), 0750); err != nil {
		return "", err
	}

	raw, err := os.ReadFile(pepperFile)
	if err == nil {
		return string(raw), nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	fresh := make([]byte, keyLength)
	if _, err := rand.Read(fresh); err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(fresh)

	if err := os.WriteFile(pepperFile, []byte(encoded), 0600); err != nil {
		return "", err
	}
	return encoded, nil
}
