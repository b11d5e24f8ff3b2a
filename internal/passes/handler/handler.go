package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"passbook/internal/passes/models"
	dErrors "passbook/pkg/domain-errors"
	"passbook/pkg/platform/httputil"
	request "passbook/pkg/platform/middleware/request"
)

// Service defines the registration operations exposed over HTTP.
// Returns domain objects, not HTTP response DTOs.
type Service interface {
	GetLatestPass(ctx context.Context, passType, serial string) (*models.Pass, error)
	GetUpdatedSerials(ctx context.Context, deviceID, passType string, updatedSince *time.Time) (*models.SerialsUpdate, error)
	RegisterDevice(ctx context.Context, deviceID, passType, serial, pushToken string) (*models.Registration, error)
	UnregisterDevice(ctx context.Context, deviceID, passType string) error
	UnregisterDeviceFromPass(ctx context.Context, deviceID, passType, serial string) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the web service routes on r. The router mounts them both
// at the root and under /v1.
func (h *Handler) Register(r chi.Router) {
	r.Get("/passes/{passType}/{serial}", h.HandleGetPass)
	r.Get("/devices/{deviceID}/registrations/{passType}", h.HandleListSerials)
	r.Post("/devices/{deviceID}/registrations/{passType}/{serial}", h.HandleRegisterDevice)
	r.Delete("/devices/{deviceID}/registrations/{passType}", h.HandleUnregisterDevice)
	r.Delete("/devices/{deviceID}/registrations/{passType}/{serial}", h.HandleUnregisterDeviceFromPass)
}

// HandleGetPass writes the latest pass payload verbatim. Conditional requests
// get 304 when the pass has not changed since If-Modified-Since.
func (h *Handler) HandleGetPass(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	passType := chi.URLParam(r, "passType")
	serial := chi.URLParam(r, "serial")

	p, err := h.service.GetLatestPass(ctx, passType, serial)
	if err != nil {
		h.logFailure(ctx, "get pass failed", err, requestID, "pass_type", passType, "serial_number", serial)
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Last-Modified", p.UpdatedAt.UTC().Format(http.TimeFormat))
	if notModified(r, p.UpdatedAt) {
		httputil.WriteStatus(w, http.StatusNotModified)
		return
	}
	httputil.WriteRawJSON(w, http.StatusOK, p.Data)
}

// HandleListSerials reports which passes of a type changed for a device.
func (h *Handler) HandleListSerials(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	deviceID := chi.URLParam(r, "deviceID")
	passType := chi.URLParam(r, "passType")

	since, err := ParseUpdatedSince(r.URL.Query().Get(updatedSinceParam))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	update, err := h.service.GetUpdatedSerials(ctx, deviceID, passType, since)
	if err != nil {
		h.logFailure(ctx, "list serials failed", err, requestID, "device_id", deviceID, "pass_type", passType)
		httputil.WriteError(w, err)
		return
	}
	if update == nil {
		httputil.WriteStatus(w, http.StatusNoContent)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSerialsResponse(update))
}

// HandleRegisterDevice registers or refreshes a device for a pass. The
// response is 201 whether or not the registration already existed.
func (h *Handler) HandleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	deviceID := chi.URLParam(r, "deviceID")
	passType := chi.URLParam(r, "passType")
	serial := chi.URLParam(r, "serial")

	req, ok := httputil.Decode[RegisterDeviceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if err := httputil.Prepare(req); err != nil {
		// An unknown pass is reported before a bad token.
		if _, lookupErr := h.service.GetLatestPass(ctx, passType, serial); dErrors.HasCode(lookupErr, dErrors.CodeNotFound) {
			err = lookupErr
		}
		h.logFailure(ctx, "register device rejected", err, requestID, "device_id", deviceID, "pass_type", passType, "serial_number", serial)
		httputil.WriteError(w, err)
		return
	}

	if _, err := h.service.RegisterDevice(ctx, deviceID, passType, serial, req.PushToken); err != nil {
		h.logFailure(ctx, "register device failed", err, requestID, "device_id", deviceID, "pass_type", passType, "serial_number", serial)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteStatus(w, http.StatusCreated)
}

// HandleUnregisterDevice removes a device's registrations for a pass type.
func (h *Handler) HandleUnregisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	deviceID := chi.URLParam(r, "deviceID")
	passType := chi.URLParam(r, "passType")

	if err := h.service.UnregisterDevice(ctx, deviceID, passType); err != nil {
		h.logFailure(ctx, "unregister device failed", err, requestID, "device_id", deviceID, "pass_type", passType)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteStatus(w, http.StatusOK)
}

func (h *Handler) HandleUnregisterDeviceFromPass(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	deviceID := chi.URLParam(r, "deviceID")
	passType := chi.URLParam(r, "passType")
	serial := chi.URLParam(r, "serial")

	if err := h.service.UnregisterDeviceFromPass(ctx, deviceID, passType, serial); err != nil {
		h.logFailure(ctx, "unregister device failed", err, requestID, "device_id", deviceID, "pass_type", passType, "serial_number", serial)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteStatus(w, http.StatusOK)
}

// logFailure logs at error level for server faults and at info level for
// expected client outcomes such as not found.
func (h *Handler) logFailure(ctx context.Context, msg string, err error, requestID string, attrs ...any) {
	args := append([]any{"error", err, "request_id", requestID}, attrs...)
	if httputil.IsServerError(err) {
		h.logger.ErrorContext(ctx, msg, args...)
		return
	}
	h.logger.InfoContext(ctx, msg, args...)
}

// notModified compares at second precision, the resolution of HTTP dates.
func notModified(r *http.Request, updatedAt time.Time) bool {
	raw := r.Header.Get("If-Modified-Since")
	if raw == "" {
		return false
	}
	since, err := http.ParseTime(raw)
	if err != nil {
		return false
	}
	return !updatedAt.Truncate(time.Second).After(since)
}
