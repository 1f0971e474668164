// Package audit writes an append-only JSON-lines record of every arm action.
//
// The log file is size-rotated with lumberjack; old files are kept according
// to the audit section of the configuration.
package audit
