// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	xglog "github.com/ManuGH/imgflash/internal/log"
	"github.com/rs/zerolog"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "IMGFLASH_"

// lookupEnv reads key and logs where the effective value came from.
// parse converts a non-empty value; a parse failure falls back to the default.
func lookupEnv[T any](logger zerolog.Logger, key string, def T, parse func(string) (T, error)) T {
	v, ok := os.LookupEnv(key)
	if !ok {
		logger.Debug().Str("key", key).Interface("default", def).Str("source", "default").Msg("using default value")
		return def
	}
	if v == "" {
		logger.Debug().Str("key", key).Interface("default", def).Str("source", "default").
			Msg("using default value (environment variable is empty)")
		return def
	}
	parsed, err := parse(v)
	if err != nil {
		logger.Warn().Str("key", key).Str("value", v).Interface("default", def).Err(err).
			Msg("invalid value in environment variable, using default")
		return def
	}
	logger.Debug().Str("key", key).Interface("value", parsed).Str("source", "environment").Msg("using environment variable")
	return parsed
}

func envLogger() zerolog.Logger {
	return xglog.WithComponent("config")
}

// ParseString reads a string from the environment or returns def.
func ParseString(key, def string) string {
	return lookupEnv(envLogger(), key, def, func(s string) (string, error) { return s, nil })
}

// ParseInt reads an integer from the environment or returns def.
func ParseInt(key string, def int) int {
	return lookupEnv(envLogger(), key, def, strconv.Atoi)
}

// ParseUint64 reads an unsigned integer from the environment or returns def.
func ParseUint64(key string, def uint64) uint64 {
	return lookupEnv(envLogger(), key, def, func(s string) (uint64, error) { return strconv.ParseUint(s, 10, 64) })
}

// ParseFloat reads a float64 from the environment or returns def.
func ParseFloat(key string, def float64) float64 {
	return lookupEnv(envLogger(), key, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

// ParseDuration reads a Go duration ("5s") from the environment or returns def.
func ParseDuration(key string, def time.Duration) time.Duration {
	return lookupEnv(envLogger(), key, def, time.ParseDuration)
}

// ParseBool reads a boolean from the environment or returns def.
// It accepts true/false, 1/0 and yes/no, case-insensitively.
func ParseBool(key string, def bool) bool {
	return lookupEnv(envLogger(), key, def, parseBool)
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	default:
		return false, strconv.ErrSyntax
	}
}
