// Package arm keeps the inventory of attached arms and the active selection.
//
// Every arm is registered with its own adapter and execution engine; the
// manager never shares an engine between devices.
package arm
