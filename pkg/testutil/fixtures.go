// Package testutil holds shared fixtures and helpers for passbook tests.
package testutil

import (
	"fmt"
	"time"
)

// Canonical identifiers used across tests.
const (
	PassType    = "com.company.pass.example"
	OtherType   = "com.company.pass.other"
	Serial      = "ABC123"
	Device      = "device1"
	PushToken   = "tok1"
	PassPayload = `{"foo":57}`
)

// FixedTime is a stable clock reading for deterministic timestamps and golden files.
var FixedTime = time.Date(2024, time.March, 14, 15, 9, 26, 0, time.UTC)

// SerialN returns a distinct serial number for table and concurrency tests.
func SerialN(n int) string {
	return fmt.Sprintf("SERIAL-%03d", n)
}

// DeviceN returns a distinct device library identifier.
func DeviceN(n int) string {
	return fmt.Sprintf("device-%03d", n)
}
