package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"net/url"

	dErrors "passbook/pkg/domain-errors"
)

// DecodeJSON decodes a JSON request body into the target type.
// On failure it writes an error response and returns nil, false.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	return &req, true
}

// FormDecodable is implemented by request types that accept url-encoded form bodies.
type FormDecodable interface {
	DecodeForm(values url.Values)
}

// DecodeForm parses a url-encoded body into the target type, which must
// implement FormDecodable.
func DecodeForm[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req := new(T)
	f, ok := any(req).(FormDecodable)
	if !ok {
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "form bodies are not supported"))
		return nil, false
	}
	if err := r.ParseForm(); err != nil {
		logger.WarnContext(ctx, "failed to parse form body",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	f.DecodeForm(r.PostForm)
	return req, true
}

// Decode picks the body decoder from the Content-Type header: JSON for
// application/json, form decoding for everything else.
func Decode[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	if isJSON(r) {
		return DecodeJSON[T](w, r, logger, ctx, requestID)
	}
	return DecodeForm[T](w, r, logger, ctx, requestID)
}

func isJSON(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	return err == nil && mediaType == "application/json"
}

// Validatable is implemented by request types that support validation.
type Validatable interface {
	Validate() error
}

// Normalizable is implemented by request types that support normalization.
type Normalizable interface {
	Normalize()
}

// PrepareRequest normalizes and validates a request.
func PrepareRequest(req any) error {
	if n, ok := req.(Normalizable); ok {
		n.Normalize()
	}
	if v, ok := req.(Validatable); ok {
		return v.Validate()
	}
	return nil
}

// Prepare normalizes and validates a decoded request. Validation failures
// that are not domain errors are reported as validation errors.
//
// Usage:
//
//	req, ok := httputil.Decode[RegisterDeviceRequest](w, r, h.logger, ctx, requestID)
//	if !ok {
//	    return
//	}
//	if err := httputil.Prepare(req); err != nil {
//	    httputil.WriteError(w, err)
//	    return
//	}
func Prepare(req any) error {
	err := PrepareRequest(req)
	if err == nil {
		return nil
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return dErrors.New(dErrors.CodeValidation, err.Error())
}
