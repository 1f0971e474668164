package usb

import (
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/ArranJacques/paplin/internal/adapter"
	"github.com/ArranJacques/paplin/internal/adaptertest"
)

// These tests drive a real board. Set PAPLIN_USB_TEST=1 with the arm
// attached and clear of obstacles; PAPLIN_USB_VENDOR_ID overrides the
// default vendor id.
func hardwareOptions(t *testing.T) Options {
	t.Helper()
	if os.Getenv("PAPLIN_USB_TEST") != "1" {
		t.Skip("set PAPLIN_USB_TEST=1 to run against an attached arm")
	}

	opts := Options{VendorID: DefaultVendorID, Model: "OWI-535", Timeout: time.Second}
	if v := os.Getenv("PAPLIN_USB_VENDOR_ID"); v != "" {
		id, err := strconv.ParseUint(v, 0, 16)
		if err != nil {
			t.Fatalf("invalid PAPLIN_USB_VENDOR_ID %q: %v", v, err)
		}
		opts.VendorID = uint16(id)
	}
	return opts
}

func TestUSBAdapterConformance(t *testing.T) {
	opts := hardwareOptions(t)

	adaptertest.RunConformance(t, func() adapter.IArmAdapter {
		a, err := Open("usb-arm-01", opts)
		if err != nil {
			t.Fatalf("Open() failed: %v", err)
		}
		return a
	}, adaptertest.Capabilities{Name: "usb", MaxTransmitLatency: opts.Timeout})
}

func TestOpenUnknownVendor(t *testing.T) {
	opts := hardwareOptions(t)
	opts.VendorID = 0xfffe

	_, err := Open("usb-arm-01", opts)
	if !errors.Is(err, adapter.ErrUnavailable) {
		t.Errorf("Expected UNAVAILABLE for a missing device, got %v", err)
	}
}
