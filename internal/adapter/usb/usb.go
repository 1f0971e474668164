// Package usb drives the arm's controller board over USB control transfers.
//
// The board takes a vendor-type control transfer (request type 0x40,
// request 6, value 0x100, index 0) whose 3-byte payload is the instruction.
package usb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/gousb"

	"github.com/ArranJacques/paplin/internal/adapter"
	"github.com/ArranJacques/paplin/internal/move"
)

// Control transfer parameters for the controller board.
const (
	requestType  = 0x40
	request      = 6
	requestValue = 0x100
	requestIndex = 0
)

// DefaultVendorID is the USB vendor id of the common OWI/Maplin arm board.
const DefaultVendorID = 0x1267

// Options configures Open.
type Options struct {
	VendorID  uint16
	ProductID uint16 // zero matches any product
	Model     string

	// Timeout bounds each control transfer.
	Timeout time.Duration
}

// Adapter implements IArmAdapter on top of libusb.
type Adapter struct {
	adapter.AdapterBase

	mu  sync.Mutex
	ctx *gousb.Context
	dev *gousb.Device
}

// Open finds the first device matching opts and opens it.
func Open(armID string, opts Options) (*Adapter, error) {
	if opts.VendorID == 0 {
		opts.VendorID = DefaultVendorID
	}

	usbCtx := gousb.NewContext()
	devs, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if desc.Vendor != gousb.ID(opts.VendorID) {
			return false
		}
		return opts.ProductID == 0 || desc.Product == gousb.ID(opts.ProductID)
	})

	// OpenDevices may return devices alongside an error for ones it
	// could not open; keep the first and release the rest.
	var dev *gousb.Device
	for _, d := range devs {
		if dev == nil {
			dev = d
			continue
		}
		_ = d.Close()
	}

	if dev == nil {
		_ = usbCtx.Close()
		if err != nil {
			return nil, adapter.NormalizeVendorErrorWithVendor(
				fmt.Errorf("open arm %s: %w", armID, err), opts, "libusb")
		}
		return nil, &adapter.VendorError{
			Code:     adapter.ErrUnavailable,
			Original: fmt.Errorf("no USB device with vendor id %#04x", opts.VendorID),
			Details:  opts,
		}
	}

	if opts.Timeout > 0 {
		dev.ControlTimeout = opts.Timeout
	}

	model := opts.Model
	if model == "" {
		model = fmt.Sprintf("usb-%04x", opts.VendorID)
	}

	return &Adapter{
		AdapterBase: adapter.AdapterBase{
			ArmID:  armID,
			Model:  model,
			Status: adapter.StatusOnline,
		},
		ctx: usbCtx,
		dev: dev,
	}, nil
}

// Transmit sends one instruction as a control transfer.
func (a *Adapter) Transmit(ctx context.Context, ins move.Instruction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := ins.Bytes()
	if err != nil {
		return adapter.NormalizeVendorErrorWithVendor(err, ins, "libusb")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.dev == nil {
		return &adapter.VendorError{
			Code:     adapter.ErrUnavailable,
			Original: fmt.Errorf("arm %s: device closed", a.ArmID),
		}
	}

	if _, err := a.dev.Control(requestType, request, requestValue, requestIndex, payload); err != nil {
		a.SetStatus(adapter.StatusOffline)
		return adapter.NormalizeVendorErrorWithVendor(err, ins, "libusb")
	}
	a.SetStatus(adapter.StatusOnline)
	return nil
}

// Close stops the arm and releases the device and the libusb context.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.dev == nil {
		return nil
	}

	// Best effort: a board that is already gone cannot be stopped.
	payload, _ := move.Neutral.Bytes()
	_, _ = a.dev.Control(requestType, request, requestValue, requestIndex, payload)

	err := a.dev.Close()
	if cerr := a.ctx.Close(); err == nil {
		err = cerr
	}
	a.dev = nil
	a.ctx = nil
	a.SetStatus(adapter.StatusOffline)
	return err
}
