// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package drives

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/imgflash/internal/flash/model"
)

// FileScanner exposes regular files as targets. Missing files are created
// empty so an image can be written into a fresh file.
type FileScanner struct {
	Paths []string
	// Capacity is reported for files smaller than it, since a regular file
	// grows as it is written.
	Capacity uint64
}

// Scan implements Scanner.
func (s *FileScanner) Scan(ctx context.Context) ([]model.Drive, error) {
	out := make([]model.Drive, 0, len(s.Paths))
	for _, p := range s.Paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve target %q: %w", p, err)
		}
		info, err := os.Stat(abs)
		switch {
		case os.IsNotExist(err):
			f, cerr := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY, 0o600) // #nosec G304
			if cerr != nil {
				return nil, fmt.Errorf("create target %q: %w", abs, cerr)
			}
			_ = f.Close()
			info, err = os.Stat(abs)
			if err != nil {
				return nil, err
			}
		case err != nil:
			return nil, fmt.Errorf("stat target %q: %w", abs, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("target %q is a directory", abs)
		}
		size := uint64(info.Size()) // #nosec G115
		if size < s.Capacity {
			size = s.Capacity
		}
		out = append(out, model.Drive{
			Device:      abs,
			DevicePath:  abs,
			DisplayName: filepath.Base(abs),
			Description: "Image file",
			Size:        size,
			IsRemovable: true,
			IsReadOnly:  info.Mode().Perm()&0o200 == 0,
		})
	}
	return out, nil
}

// MultiScanner concatenates the results of several scanners.
type MultiScanner []Scanner

// Scan implements Scanner.
func (m MultiScanner) Scan(ctx context.Context) ([]model.Drive, error) {
	var out []model.Drive
	for _, s := range m {
		drives, err := s.Scan(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, drives...)
	}
	return out, nil
}
