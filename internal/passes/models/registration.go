package models

import (
	"time"

	"passbook/pkg/platform/validation"
)

// Registration associates a device with a pass and carries the push token
// used to notify that device.
type Registration struct {
	ID                      int64
	DeviceLibraryIdentifier string
	PassID                  int64
	PushToken               string
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// ValidateRegistration checks the device identifier and push token before
// they reach a store.
func ValidateRegistration(deviceID, pushToken string) error {
	if err := validation.CheckRequired("deviceLibraryIdentifier", deviceID); err != nil {
		return err
	}
	if err := validation.CheckStringLength("deviceLibraryIdentifier", deviceID, validation.MaxIdentifierLength); err != nil {
		return err
	}
	if err := validation.CheckRequired("pushToken", pushToken); err != nil {
		return err
	}
	return validation.CheckStringLength("pushToken", pushToken, validation.MaxPushTokenLength)
}

// UpdatedSince reports whether the registration passes an optional
// "updated since" filter. A nil bound matches everything; the bound is inclusive.
func (r *Registration) UpdatedSince(since *time.Time) bool {
	if since == nil {
		return true
	}
	return !r.UpdatedAt.Before(*since)
}

// SerialsUpdate answers "which passes changed for this device".
type SerialsUpdate struct {
	LastUpdated   time.Time
	SerialNumbers []string
}
