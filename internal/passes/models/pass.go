package models

import (
	"bytes"
	"encoding/json"
	"regexp"
	"time"

	dErrors "passbook/pkg/domain-errors"
	"passbook/pkg/platform/validation"
)

// passTypePattern accepts dot-separated word segments such as
// "pass.com.example.boarding". Leading dots, doubled dots and any
// non-word character are rejected.
var passTypePattern = regexp.MustCompile(`^(\w\.?)+$`)

// Pass is a provisioned wallet item identified by type and serial.
// Data is opaque and returned verbatim.
type Pass struct {
	ID                 int64
	PassTypeIdentifier string
	SerialNumber       string
	Data               json.RawMessage
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Identity is the (type, serial) pair that uniquely names a pass.
type Identity struct {
	PassTypeIdentifier string
	SerialNumber       string
}

func (p *Pass) Identity() Identity {
	return Identity{PassTypeIdentifier: p.PassTypeIdentifier, SerialNumber: p.SerialNumber}
}

// String renders the identity as "type/serial".
func (i Identity) String() string {
	return i.PassTypeIdentifier + "/" + i.SerialNumber
}

// ValidatePassTypeIdentifier checks the dot-segment format and column width.
func ValidatePassTypeIdentifier(passType string) error {
	if err := validation.CheckStringLength("passTypeIdentifier", passType, validation.MaxIdentifierLength); err != nil {
		return err
	}
	if !passTypePattern.MatchString(passType) {
		return dErrors.New(dErrors.CodeValidation, "passTypeIdentifier must be dot-separated word segments")
	}
	return nil
}

// ValidateSerialNumber checks that a serial number is present and fits its column.
func ValidateSerialNumber(serial string) error {
	if err := validation.CheckRequired("serialNumber", serial); err != nil {
		return err
	}
	return validation.CheckStringLength("serialNumber", serial, validation.MaxIdentifierLength)
}

// NewPass validates and builds a pass. An empty payload becomes {}.
func NewPass(passType, serial string, data []byte, now time.Time) (*Pass, error) {
	if err := ValidatePassTypeIdentifier(passType); err != nil {
		return nil, err
	}
	if err := ValidateSerialNumber(serial); err != nil {
		return nil, err
	}
	payload, err := normalizeData(data)
	if err != nil {
		return nil, err
	}

	now = Timestamp(now)
	return &Pass{
		PassTypeIdentifier: passType,
		SerialNumber:       serial,
		Data:               payload,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// ReplaceData swaps in a new payload and advances UpdatedAt when it differs.
// It reports whether anything changed.
func (p *Pass) ReplaceData(data []byte, now time.Time) (bool, error) {
	payload, err := normalizeData(data)
	if err != nil {
		return false, err
	}
	if bytes.Equal(p.Data, payload) {
		return false, nil
	}
	p.Data = payload
	p.UpdatedAt = Timestamp(now)
	return true, nil
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (p *Pass) Clone() *Pass {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Data = append(json.RawMessage(nil), p.Data...)
	return &cp
}

func normalizeData(data []byte) (json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return json.RawMessage("{}"), nil
	}
	if err := validation.CheckSize("data", data, validation.MaxPassDataSize); err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, dErrors.New(dErrors.CodeValidation, "pass data must be valid JSON")
	}
	return append(json.RawMessage(nil), data...), nil
}

// Timestamp normalises t to UTC at microsecond precision, the resolution
// every backing store can round-trip.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
