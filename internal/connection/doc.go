// Package connection implements the transport half of the Connection
// Manager.
//
// A Dialer opens a Transport (a WebSocket in production). A Session owns
// exactly one Transport, runs its read loop, and reports every inbound
// frame and any abnormal close to a SessionHandler:
//   - frames are delivered in arrival order from a single goroutine
//   - an owner-initiated Close is never reported as a close event
//   - a stale connection (no traffic or pong within PingTimeout) is an
//     abnormal close with ErrStaleConnection
package connection
