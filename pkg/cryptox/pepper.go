package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Configuration for Argon2id hashing.
const (
	memory      = 19 * 1024 // Memory usage in KiB (19 MiB)
	iterations  = 2         // Iteration count
	parallelism = 1         // Number of threads
	keyLength   = 32        // Length of the generated hash
	saltLength  = 16        // Length of the salt
)

var (
	pepperMu   sync.Mutex
	pepper     string
	pepperFile = "pepper"
)

// SetPepperPath configures where the pepper is read from (or written to when
// it does not exist yet). It must be called before the first hash.
func SetPepperPath(file string) {
	pepperMu.Lock()
	defer pepperMu.Unlock()
	pepperFile = file
	pepper = ""
}

// GetPepper returns the process pepper, loading or generating it on first use.
// A pepper that cannot be loaded is fatal: hashing without it would produce
// hashes that never verify again.
func GetPepper() string {
	pepperMu.Lock()
	defer pepperMu.Unlock()

	if pepper != "" {
		return pepper
	}

	var err error
	pepper, err = loadOrGeneratePepper(pepperFile)
	if err != nil {
		slog.Error("failed to load or generate pepper", slog.Any("error", err))
		os.Exit(1)
	}

	return pepper
}

// ReloadPepper re-reads the pepper file, e.g. after it was restored from backup.
func ReloadPepper() error {
	pepperMu.Lock()
	defer pepperMu.Unlock()

	p, err := loadOrGeneratePepper(pepperFile)
	if err != nil {
		slog.Error("failed to load or generate pepper", slog.Any("error", err))
		return err
	}
	pepper = p
	return nil
}

func loadOrGeneratePepper(file string) (string, error) {
	file = filepath.Clean(file)
	if err := os.MkdirAll(filepath.Dir(file), 0750); err != nil {
		return "", err
	}

	if _, err := os.Stat(file); os.IsNotExist(err) {
		pepperBytes := make([]byte, keyLength)
		if _, err := rand.Read(pepperBytes); err != nil {
			return "", err
		}
		p := base64.RawURLEncoding.EncodeToString(pepperBytes)

		if err := os.WriteFile(file, []byte(p), 0600); err != nil {
			return "", err
		}
		return p, nil
	}

	pepperBytes, err := os.ReadFile(file) // #nosec G304 - operator supplied path
	if err != nil {
		return "", err
	}

	return string(pepperBytes), nil
}
