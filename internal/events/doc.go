// Package events defines the payloads of the server's known push events
// and helpers for decoding them from router events.
//
// The connection and routing layers never look inside payloads; only
// subscribers use this package.
package events
