// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/imgflash/internal/log"
)

// CheckDataDir makes sure dir exists and is writable.
func CheckDataDir(dir string) error {
	logger := log.WithComponent("startup-check")
	if dir == "" {
		return fmt.Errorf("data directory is not configured")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create data directory %s: %w", dir, err)
	}
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("data directory %s is not writable: %w", dir, err)
	}
	_ = os.Remove(testFile)
	logger.Debug().Str(log.FieldPath, dir).Msg("data directory writable")
	return nil
}
