// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package util

import "encoding/json"

// IsJSON reports whether s parses as a JSON document.
func IsJSON(s string) bool {
	var v any
	return json.Unmarshal([]byte(s), &v) == nil
}
