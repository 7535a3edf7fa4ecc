// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import "go.opentelemetry.io/otel/attribute"

// Attribute keys used on flash spans.
const (
	FlashAttemptIDKey  = "flash.attempt_id"
	FlashImageKey      = "flash.image"
	FlashImageSizeKey  = "flash.image_size"
	FlashDeviceCount   = "flash.device_count"
	FlashSuccessfulKey = "flash.devices.successful"
	FlashFailedKey     = "flash.devices.failed"
	FlashStateKey      = "flash.state"
	FlashErrorCodeKey  = "flash.error_code"

	AnalyticsEventKey = "analytics.event"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// FlashAttributes creates span attributes describing a flash request.
func FlashAttributes(attemptID, image string, imageSize uint64, devices int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(FlashImageKey, image),
		attribute.Int64(FlashImageSizeKey, int64(imageSize)),
		attribute.Int(FlashDeviceCount, devices),
	}
	if attemptID != "" {
		attrs = append(attrs, attribute.String(FlashAttemptIDKey, attemptID))
	}
	return attrs
}

// OutcomeAttributes creates span attributes describing per-device results.
func OutcomeAttributes(successful, failed int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(FlashSuccessfulKey, successful),
		attribute.Int(FlashFailedKey, failed),
	}
}

// ErrorAttributes creates error span attributes.
func ErrorAttributes(code string) []attribute.KeyValue {
	if code == "" {
		code = "unclassified"
	}
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, code),
		attribute.String(FlashErrorCodeKey, code),
	}
}
