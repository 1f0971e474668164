// Package adapter defines the arm adapter interface for the paplin controller.
//
// Arm adapters carry instructions to the device. The IArmAdapter interface is
// the single transmit primitive the command engine depends on; adapters model
// neither duration nor retries.
//
// Transport failures are normalized to INVALID_RANGE, BUSY, UNAVAILABLE or
// INTERNAL while keeping the original vendor error reachable through
// errors.Is and errors.As.
package adapter
