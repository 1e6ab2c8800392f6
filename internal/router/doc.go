// Package router implements the Event Router.
//
// The Router keeps the subscription registry (event type → handlers) and
// dispatches decoded {type, data} envelopes to every handler registered
// for the envelope's type. Payloads are opaque: the router never looks
// inside data.
//
// Dispatch iterates over a snapshot of the handler set, so handlers may
// subscribe or unsubscribe (on the same Router) while being invoked.
// A handler that returns an error or panics is logged and counted; the
// remaining handlers still run.
package router
