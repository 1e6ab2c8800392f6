// Package poller periodically nudges the push server.
//
// The Poller:
//   - Sends {"type":"request_status"} every StatusInterval so a missed
//     queue_update is corrected by the next status_update
//   - Sends {"type":"ping"} every PingInterval as an application-level
//     keepalive
//   - Skips ticks while disconnected; nothing is queued for later
package poller
