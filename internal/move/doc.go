// Package move defines the instruction model of the arm controller.
//
// An Instruction is the three-field command the arm holds while it is active.
// Combining two instructions adds the magnitude field and XORs the two flag
// fields, so issuing the same directional flag twice toggles it back off.
//
// The package also carries the static motion table (named motion to
// instruction) and the 3-byte wire encoding used by the USB transport.
package move
