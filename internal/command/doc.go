// Package command plays move sequences against a single arm.
//
// An Engine owns one device. It accepts one sequence at a time, transmits
// each step, holds it for the step's duration and checks for a stop request
// before moving on. The indicator light is an overlay applied to every
// transmission rather than a step of its own.
package command
