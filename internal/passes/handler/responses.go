package handler

import (
	"time"

	"passbook/internal/passes/models"
)

// SerialsResponse lists the passes that changed for a device.
type SerialsResponse struct {
	LastUpdated   string   `json:"lastUpdated"`
	SerialNumbers []string `json:"serialNumbers"`
}

func toSerialsResponse(u *models.SerialsUpdate) *SerialsResponse {
	return &SerialsResponse{
		LastUpdated:   u.LastUpdated.UTC().Format(time.RFC3339Nano),
		SerialNumbers: u.SerialNumbers,
	}
}
