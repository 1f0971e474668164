// Package telemetry fans arm events out to Server-Sent Events subscribers.
//
// Each arm has its own monotonic event id sequence and a bounded replay
// buffer, so a client reconnecting with Last-Event-ID receives what it missed.
// A heartbeat runs while at least one client is connected.
package telemetry
