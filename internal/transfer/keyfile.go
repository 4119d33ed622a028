package transfer

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// WriteKeyFile writes private key material to a new 0600 file in dir
// (the system temp dir when dir is empty). The returned cleanup removes the
// file and is safe to call more than once.
func WriteKeyFile(dir, material string) (string, func() error, error) {
	if strings.TrimSpace(material) == "" {
		return "", nil, fmt.Errorf("private key material is empty")
	}

	f, err := os.CreateTemp(dir, "delivery-key-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create key file: %w", err)
	}
	path := f.Name()

	cleanup := func() error {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove key file: %w", err)
		}
		return nil
	}

	if err := f.Chmod(0o600); err != nil {
		_ = f.Close()
		_ = cleanup()
		return "", nil, fmt.Errorf("failed to restrict key file: %w", err)
	}

	if !strings.HasSuffix(material, "\n") {
		material += "\n"
	}
	if _, err := f.WriteString(material); err != nil {
		_ = f.Close()
		_ = cleanup()
		return "", nil, fmt.Errorf("failed to write key file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = cleanup()
		return "", nil, fmt.Errorf("failed to close key file: %w", err)
	}

	return path, cleanup, nil
}
