// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

//go:embed openapi.yaml
var openAPISpec []byte

// ServerInterface has one handler per operationId in openapi.yaml.
type ServerInterface interface {
	// (GET /api/v1/flash)
	GetFlash(w http.ResponseWriter, r *http.Request)
	// (POST /api/v1/flash/cancel)
	CancelFlash(w http.ResponseWriter, r *http.Request)
	// (POST /api/v1/flash/skip-validation)
	SkipValidation(w http.ResponseWriter, r *http.Request)
	// (GET /api/v1/drives)
	ListDrives(w http.ResponseWriter, r *http.Request)
	// (GET /api/v1/analytics/events)
	ListAnalyticsEvents(w http.ResponseWriter, r *http.Request)
}

var _ ServerInterface = (*Server)(nil)

// LoadOpenAPI parses and validates the embedded API document.
func LoadOpenAPI(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(openAPISpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi: %w", err)
	}
	return doc, nil
}

// validateRequests rejects requests whose parameters do not match the
// routed operation. Paths the document does not describe fall through.
func validateRequests(router routers.Router) func(http.Handler) http.Handler {
	opts := &openapi3filter.Options{AuthenticationFunc: openapi3filter.NoopAuthenticationFunc}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				// Unknown path or method; chi answers 404/405.
				next.ServeHTTP(w, r)
				return
			}
			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options:    opts,
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				msg := err.Error()
				var reqErr *openapi3filter.RequestError
				if errors.As(err, &reqErr) && reqErr.Parameter != nil {
					msg = fmt.Sprintf("invalid parameter %q", reqErr.Parameter.Name)
				}
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newOpenAPIRouter(ctx context.Context) (routers.Router, error) {
	doc, err := LoadOpenAPI(ctx)
	if err != nil {
		return nil, err
	}
	return legacy.NewRouter(doc)
}
