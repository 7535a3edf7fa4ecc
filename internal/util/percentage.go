// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package util holds small helpers shared by the flash screen and the writer.
package util

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrInvalidArgument classifies malformed helper inputs.
// Use errors.Is(err, ErrInvalidArgument).
var ErrInvalidArgument = errors.New("invalid argument")

// InvalidArgumentError carries a descriptive title for the rejected input.
type InvalidArgumentError struct {
	Title string
}

func (e *InvalidArgumentError) Error() string { return e.Title }

func (e *InvalidArgumentError) Unwrap() error { return ErrInvalidArgument }

// IsValidPercentage reports whether p is a finite number in [0, 100].
func IsValidPercentage(p float64) bool {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return false
	}
	return p >= 0 && p <= 100
}

// PercentageToFloat converts a percentage into a fraction in [0, 1].
func PercentageToFloat(p float64) (float64, error) {
	if !IsValidPercentage(p) {
		return 0, &InvalidArgumentError{
			Title: fmt.Sprintf("Invalid percentage: %s", strconv.FormatFloat(p, 'g', -1, 64)),
		}
	}
	return p / 100, nil
}
