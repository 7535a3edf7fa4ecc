// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package drives enumerates flash targets and keeps the available drive list
// current while devices come and go.
package drives

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ManuGH/imgflash/internal/flash/model"
)

// Scanner enumerates candidate drives.
type Scanner interface {
	Scan(ctx context.Context) ([]model.Drive, error)
}

// minDriveSize filters out card readers with no media and similar stubs.
const minDriveSize = 10 * 1024 * 1024

var skippedPrefixes = []string{"loop", "ram", "sr", "dm-", "md", "zram", "fd"}

// SysfsScanner reads block devices from /sys/block.
type SysfsScanner struct {
	// SysRoot defaults to /sys.
	SysRoot string
	// DevRoot defaults to /dev.
	DevRoot string
	// MountsFile defaults to /proc/mounts.
	MountsFile string
	// IncludeSystem lists fixed disks as well, flagged IsSystem.
	IncludeSystem bool
}

func (s *SysfsScanner) sysRoot() string {
	if s.SysRoot == "" {
		return "/sys"
	}
	return s.SysRoot
}

func (s *SysfsScanner) devRoot() string {
	if s.DevRoot == "" {
		return "/dev"
	}
	return s.DevRoot
}

func (s *SysfsScanner) mountsFile() string {
	if s.MountsFile == "" {
		return "/proc/mounts"
	}
	return s.MountsFile
}

// Scan implements Scanner.
func (s *SysfsScanner) Scan(ctx context.Context) ([]model.Drive, error) {
	blockDir := filepath.Join(s.sysRoot(), "block")
	entries, err := os.ReadDir(blockDir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", blockDir, err)
	}

	mounts, err := readMounts(s.mountsFile())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	var out []model.Drive
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if hasAnyPrefix(name, skippedPrefixes) {
			continue
		}
		d, ok := s.readDevice(blockDir, name, mounts)
		if !ok {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Device < out[j].Device })
	return out, nil
}

func (s *SysfsScanner) readDevice(blockDir, name string, mounts map[string][]string) (model.Drive, bool) {
	sysPath := filepath.Join(blockDir, name)

	removableRaw, err := os.ReadFile(filepath.Join(sysPath, "removable")) // #nosec G304
	if err != nil {
		return model.Drive{}, false
	}
	removable := strings.TrimSpace(string(removableRaw)) == "1"

	isUSB := false
	if link, err := os.Readlink(sysPath); err == nil {
		isUSB = strings.Contains(link, "usb")
	}

	system := !removable && !isUSB
	if system && !s.IncludeSystem {
		return model.Drive{}, false
	}

	sectors := readUint(filepath.Join(sysPath, "size"))
	size := sectors * 512
	if size < minDriveSize {
		return model.Drive{}, false
	}

	modelName := readTrimmed(filepath.Join(sysPath, "device", "model"))
	vendor := readTrimmed(filepath.Join(sysPath, "device", "vendor"))
	description := strings.TrimSpace(vendor + " " + modelName)
	if description == "" {
		if isUSB {
			description = "USB Drive"
		} else {
			description = "Disk"
		}
	}

	devPath := filepath.Join(s.devRoot(), name)
	return model.Drive{
		Device:      devPath,
		DevicePath:  devPath,
		DisplayName: devPath,
		Description: description,
		Size:        size,
		Mountpoints: mountpointsFor(devPath, mounts),
		IsSystem:    system,
		IsRemovable: removable,
		IsReadOnly:  readTrimmed(filepath.Join(sysPath, "ro")) == "1",
		IsUSB:       isUSB,
	}, true
}

// readMounts maps device paths to their mountpoints.
func readMounts(path string) (map[string][]string, error) {
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("open mounts: %w", err)
	}
	defer func() { _ = f.Close() }()

	mounts := make(map[string][]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 || !strings.HasPrefix(fields[0], "/") {
			continue
		}
		mounts[fields[0]] = append(mounts[fields[0]], unescapeMount(fields[1]))
	}
	return mounts, sc.Err()
}

// mountpointsFor collects mountpoints of the device and its partitions.
func mountpointsFor(devPath string, mounts map[string][]string) []string {
	var out []string
	for dev, points := range mounts {
		if dev == devPath || isPartitionOf(dev, devPath) {
			out = append(out, points...)
		}
	}
	sort.Strings(out)
	return out
}

func isPartitionOf(dev, disk string) bool {
	if !strings.HasPrefix(dev, disk) {
		return false
	}
	rest := strings.TrimPrefix(strings.TrimPrefix(dev, disk), "p")
	if rest == "" {
		return false
	}
	_, err := strconv.Atoi(rest)
	return err == nil
}

// unescapeMount decodes the octal escapes used in /proc/mounts.
func unescapeMount(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func readTrimmed(path string) string {
	b, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func readUint(path string) uint64 {
	v, err := strconv.ParseUint(readTrimmed(path), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
