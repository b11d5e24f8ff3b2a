package handler

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	dErrors "passbook/pkg/domain-errors"
	"passbook/pkg/validation"
)

const updatedSinceParam = "passesUpdatedSince"

// RegisterDeviceRequest is the registration body. Devices send the token as a
// push_token form field; JSON clients send {"pushToken": "..."}.
type RegisterDeviceRequest struct {
	PushToken string `json:"pushToken" form:"push_token" validate:"required,notblank,max=255,printascii"`
}

func (r *RegisterDeviceRequest) DecodeForm(values url.Values) {
	r.PushToken = values.Get("push_token")
	if r.PushToken == "" {
		r.PushToken = values.Get("pushToken")
	}
}

func (r *RegisterDeviceRequest) Normalize() {
	if r == nil {
		return
	}
	r.PushToken = strings.TrimSpace(r.PushToken)
}

func (r *RegisterDeviceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

// ParseUpdatedSince parses the passesUpdatedSince query value. It accepts
// RFC 3339 with optional fractional seconds or integer Unix seconds. An empty
// value means no filter.
func ParseUpdatedSince(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		t := time.Unix(secs, 0).UTC()
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, updatedSinceParam+" must be RFC 3339 or Unix seconds")
	}
	t = t.UTC()
	return &t, nil
}
