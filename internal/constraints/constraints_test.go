// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package constraints

import (
	"testing"

	"github.com/ManuGH/imgflash/internal/flash/model"
	"github.com/stretchr/testify/assert"
)

func kinds(statuses []model.DriveStatus) []model.StatusKind {
	out := make([]model.StatusKind, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, s.Kind)
	}
	return out
}

func TestStatuses_NoImage(t *testing.T) {
	c := New(Config{LargeDriveSize: 64e9})

	tests := []struct {
		name  string
		drive model.Drive
		want  []model.StatusKind
	}{
		{"plain usb stick", model.Drive{Size: 16e9, IsRemovable: true}, []model.StatusKind{}},
		{"system drive", model.Drive{Size: 16e9, IsSystem: true}, []model.StatusKind{model.StatusSystem}},
		{"large drive", model.Drive{Size: 500e9}, []model.StatusKind{model.StatusLarge}},
		{"large system drive", model.Drive{Size: 500e9, IsSystem: true}, []model.StatusKind{model.StatusSystem, model.StatusLarge}},
		{"locked", model.Drive{Size: 8e9, IsReadOnly: true}, []model.StatusKind{model.StatusLocked}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, kinds(c.Statuses(tt.drive, nil, true)))
		})
	}
}

func TestStatuses_LockedIgnoredWhenNotStrict(t *testing.T) {
	c := New(Config{})
	assert.Empty(t, c.Statuses(model.Drive{Size: 8e9, IsReadOnly: true}, nil, false))
}

func TestStatuses_WithImage(t *testing.T) {
	c := New(Config{RecommendedSize: 32e9})
	img := &model.Image{Path: "/media/stick/os.img", Size: 10e9}

	small := model.Drive{Size: 4e9}
	assert.Equal(t, []model.StatusKind{model.StatusSmall, model.StatusSizeNotRecommended}, kinds(c.Statuses(small, img, true)))

	source := model.Drive{Size: 64e9, Mountpoints: []string{"/media/stick"}}
	assert.Equal(t, []model.StatusKind{model.StatusContainsImage}, kinds(c.Statuses(source, img, true)))
	assert.False(t, c.IsDriveValid(source, img, true))

	ok := model.Drive{Size: 64e9, Mountpoints: []string{"/media/other"}}
	assert.Empty(t, c.Statuses(ok, img, true))
	assert.True(t, c.IsDriveValid(ok, img, true))
}

func TestIsSourceDrive_PrefixIsNotEnough(t *testing.T) {
	img := &model.Image{Path: "/media/stick2/os.img"}
	assert.False(t, IsSourceDrive(model.Drive{Mountpoints: []string{"/media/stick"}}, img))
	assert.True(t, IsSourceDrive(model.Drive{IsSystem: true, Mountpoints: []string{"/"}}, img))
}

func TestNew_DefaultThreshold(t *testing.T) {
	c := New(Config{})
	assert.False(t, c.IsDriveSizeLarge(model.Drive{Size: DefaultLargeDriveSize}))
	assert.True(t, c.IsDriveSizeLarge(model.Drive{Size: DefaultLargeDriveSize + 1}))
}
