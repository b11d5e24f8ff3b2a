package validation

import (
	"fmt"
	"strings"

	dErrors "passbook/pkg/domain-errors"
)

// MaxBodySize is the default request body cap (64 KiB). Registration bodies
// carry a single push token, so anything larger is abuse.
const MaxBodySize = 64 * 1024

// Column widths shared by the stores and the request validators.
const (
	MaxIdentifierLength = 255
	MaxPushTokenLength  = 255
)

// MaxPassDataSize bounds provisioned pass payloads (1 MiB).
const MaxPassDataSize = 1 << 20

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}

// CheckRequired rejects empty and whitespace-only values.
func CheckRequired(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return dErrors.New(dErrors.CodeValidation, fieldName+" is required")
	}
	return nil
}

// CheckSize validates a byte payload against a size cap.
func CheckSize(fieldName string, value []byte, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max size of %d bytes", fieldName, max))
	}
	return nil
}
