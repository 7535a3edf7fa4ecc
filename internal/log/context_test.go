// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextWithAttemptID(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		id   string
		want string
	}{
		{name: "nil context", ctx: nil, id: "a-1", want: "a-1"},
		{name: "background context", ctx: context.Background(), id: "a-2", want: "a-2"},
		{name: "empty id", ctx: context.Background(), id: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithAttemptID(tt.ctx, tt.id)
			if got := AttemptIDFromContext(ctx); got != tt.want {
				t.Errorf("AttemptIDFromContext() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithContext_AddsCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithAttemptID(ctx, "att-1")

	l := WithContext(ctx, logger)
	l.Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry[FieldRequestID] != "req-1" {
		t.Errorf("request_id = %v, want req-1", entry[FieldRequestID])
	}
	if entry[FieldAttemptID] != "att-1" {
		t.Errorf("attempt_id = %v, want att-1", entry[FieldAttemptID])
	}
}

func TestWithContext_NoFieldsReturnsSameLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	l := WithContext(context.Background(), logger)
	l.Info().Msg("plain")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if _, ok := entry[FieldAttemptID]; ok {
		t.Error("unexpected attempt_id field")
	}
}

func TestReconfigure_AppliesServiceName(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Level: "debug", Output: &buf, Service: "imgflash-test"})
	t.Cleanup(func() { Reconfigure(Config{}) })

	l := WithComponent("unit")
	l.Debug().Msg("configured")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["service"] != "imgflash-test" {
		t.Errorf("service = %v, want imgflash-test", entry["service"])
	}
	if entry[FieldComponent] != "unit" {
		t.Errorf("component = %v, want unit", entry[FieldComponent])
	}
}

func TestDerive_AddsFields(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Level: "debug", Output: &buf})
	t.Cleanup(func() { Reconfigure(Config{}) })

	l := Derive(func(c *zerolog.Context) {
		*c = c.Str(FieldComponent, "writer").Str(FieldDevice, "/dev/sdb")
	})
	l.Info().Msg("derived")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry[FieldDevice] != "/dev/sdb" {
		t.Errorf("device = %v, want /dev/sdb", entry[FieldDevice])
	}
	if entry[FieldComponent] != "writer" {
		t.Errorf("component = %v, want writer", entry[FieldComponent])
	}
}
