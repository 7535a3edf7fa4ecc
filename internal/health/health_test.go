// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error { return nil }

func failing(context.Context) error { return errors.New("broken") }

func TestManager_Ready(t *testing.T) {
	tests := []struct {
		name      string
		checkers  []Checker
		want      Status
		wantReady bool
	}{
		{"no checkers", nil, StatusHealthy, true},
		{"all healthy", []Checker{NewFuncChecker("db", ok)}, StatusHealthy, true},
		{"optional failure", []Checker{NewFuncChecker("db", ok), NewOptionalChecker("drives", failing)}, StatusDegraded, true},
		{"required failure", []Checker{NewOptionalChecker("drives", failing), NewFuncChecker("db", failing)}, StatusUnhealthy, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("test")
			for _, c := range tt.checkers {
				m.RegisterChecker(c)
			}
			resp := m.Ready(context.Background())
			assert.Equal(t, tt.want, resp.Status)
			assert.Equal(t, tt.wantReady, resp.Ready)
			assert.Len(t, resp.Checks, len(tt.checkers))
		})
	}
}

func TestServeHealth_LivenessAlways200(t *testing.T) {
	m := NewManager("v1")
	m.RegisterChecker(NewFuncChecker("db", failing))

	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Empty(t, resp.Checks)

	rec = httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil))
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Equal(t, "broken", resp.Checks["db"].Error)
}

func TestServeReady_Unavailable(t *testing.T) {
	m := NewManager("v1")
	m.RegisterChecker(NewFuncChecker("db", failing))

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestCheckDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	require.NoError(t, CheckDataDir(dir))
	assert.DirExists(t, dir)
	_, err := os.Stat(filepath.Join(dir, ".write-test"))
	assert.True(t, os.IsNotExist(err))

	require.Error(t, CheckDataDir(""))
}
