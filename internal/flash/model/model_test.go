// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImage_Basename(t *testing.T) {
	assert.Equal(t, "raspios.img", Image{Path: "/tmp/images/raspios.img"}.Basename())
	assert.Equal(t, "", Image{}.Basename())
}

func TestDrive_Label(t *testing.T) {
	assert.Equal(t, "SanDisk Ultra (/dev/sdb)", Drive{Device: "/dev/sdb", Description: "SanDisk Ultra", DisplayName: "/dev/sdb"}.Label())
	assert.Equal(t, "/dev/sdc", Drive{Device: "/dev/sdc"}.Label())
}

func TestErrorCode_Wrapped(t *testing.T) {
	cause := errors.New("no space left on device")
	err := fmt.Errorf("write target: %w", NewFlashError(CodeNoSpace, "/dev/sdb", cause))

	assert.Equal(t, CodeNoSpace, ErrorCode(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "", ErrorCode(cause))
	assert.Contains(t, err.Error(), "ENOSPC: /dev/sdb")
}

func TestHasStatus(t *testing.T) {
	statuses := []DriveStatus{{Kind: StatusLarge, Type: StatusTypeWarning}}
	assert.True(t, HasStatus(statuses, StatusLarge))
	assert.False(t, HasStatus(statuses, StatusSystem))
}
