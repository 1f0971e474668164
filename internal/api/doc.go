// Package api implements the HTTP API for paplin.
//
// Commands are HTTP/JSON under /api/v1 and answer with a unified envelope
// (result, data, code, message, correlationId). Telemetry is served as
// Server-Sent Events from /api/v1/telemetry. When an auth middleware is
// configured, reads need the read scope and every route that moves an arm
// needs the control scope.
package api
