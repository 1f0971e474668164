package adapter

import (
	"errors"
	"fmt"
	"strings"
)

// Normalized adapter errors.
var (
	ErrInvalidRange = errors.New("INVALID_RANGE")
	ErrBusy         = errors.New("BUSY")
	ErrUnavailable  = errors.New("UNAVAILABLE")
	ErrInternal     = errors.New("INTERNAL")
)

// VendorMap defines the error token mapping for one transport vendor.
type VendorMap struct {
	Range       []string // Tokens that map to INVALID_RANGE
	Busy        []string // Tokens that map to BUSY
	Unavailable []string // Tokens that map to UNAVAILABLE
}

// VendorErrorMappings holds the token tables used to classify transport
// errors. Matching is case-insensitive substring matching; the first table
// hit wins in Range, Busy, Unavailable order and anything else is INTERNAL.
//
// libusb tokens follow the messages gousb produces, e.g.
// "libusb: busy [code -6]" or "libusb: no device [code -4]".
var VendorErrorMappings = map[string]VendorMap{
	"libusb": {
		Range: []string{
			"INVALID PARAM",
			"OVERFLOW",
			"OUT OF BYTE RANGE",
		},
		Busy: []string{
			"LIBUSB: BUSY",
			"RESOURCE BUSY",
			"INTERRUPTED",
			"TIMEOUT",
		},
		Unavailable: []string{
			"NO DEVICE",
			"NOT FOUND",
			"ACCESS DENIED",
			"PIPE ERROR",
			"INPUT/OUTPUT ERROR",
			"NOT SUPPORTED",
		},
	},
	"generic": {
		Range: []string{
			"OUT_OF_RANGE",
			"INVALID_RANGE",
			"OUT OF BYTE RANGE",
			"BAD_VALUE",
		},
		Busy: []string{
			"BUSY",
			"RETRY",
			"TIMEOUT",
		},
		Unavailable: []string{
			"UNAVAILABLE",
			"DISCONNECTED",
			"OFFLINE",
			"NOT_READY",
		},
	},
}

// VendorError wraps a transport error with its normalized code.
type VendorError struct {
	Code     error       // Normalized code
	Original error       // Transport error
	Details  interface{} // Vendor payload (opaque)
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("%v (vendor: %v)", e.Code, e.Original)
}

// Unwrap exposes both the normalized code and the original error.
func (e *VendorError) Unwrap() []error {
	return []error{e.Code, e.Original}
}

// NormalizeVendorError maps an error using the generic table.
func NormalizeVendorError(vendorErr error, vendorPayload interface{}) error {
	return NormalizeVendorErrorWithVendor(vendorErr, vendorPayload, "generic")
}

// NormalizeVendorErrorWithVendor maps an error using a vendor specific table.
// Errors that are already normalized are returned unchanged.
func NormalizeVendorErrorWithVendor(vendorErr error, vendorPayload interface{}, vendorID string) error {
	if vendorErr == nil {
		return nil
	}

	var already *VendorError
	if errors.As(vendorErr, &already) {
		return vendorErr
	}

	return &VendorError{
		Code:     mapVendorErrorToCode(vendorErr.Error(), vendorID),
		Original: vendorErr,
		Details:  vendorPayload,
	}
}

// Code returns the normalized code for err, or ErrInternal when err carries
// none.
func Code(err error) error {
	for _, code := range []error{ErrInvalidRange, ErrBusy, ErrUnavailable, ErrInternal} {
		if errors.Is(err, code) {
			return code
		}
	}
	return ErrInternal
}

func mapVendorErrorToCode(msg string, vendorID string) error {
	vendorMap, exists := VendorErrorMappings[vendorID]
	if !exists {
		vendorMap = VendorErrorMappings["generic"]
	}

	upperMsg := strings.ToUpper(msg)

	for _, token := range vendorMap.Range {
		if strings.Contains(upperMsg, token) {
			return ErrInvalidRange
		}
	}
	for _, token := range vendorMap.Busy {
		if strings.Contains(upperMsg, token) {
			return ErrBusy
		}
	}
	for _, token := range vendorMap.Unavailable {
		if strings.Contains(upperMsg, token) {
			return ErrUnavailable
		}
	}

	return ErrInternal
}
