// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package util

import (
	"fmt"
	"math"
	"time"
)

// FormatSeconds renders a duration in seconds as "<m>m<s>s".
// Non-finite input yields "".
func FormatSeconds(totalSeconds float64) string {
	if math.IsNaN(totalSeconds) || math.IsInf(totalSeconds, 0) {
		return ""
	}
	// Float formatting keeps magnitudes beyond int64 well-formed.
	minutes := math.Floor(totalSeconds/60) + 0
	seconds := math.Floor(totalSeconds - minutes*60)
	seconds = math.Max(0, math.Min(59, seconds)) + 0
	return fmt.Sprintf("%.0fm%.0fs", minutes, seconds)
}

// Delay suspends the calling goroutine for d.
func Delay(d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	<-t.C
}
