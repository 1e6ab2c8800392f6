// Package push is the resilient push-update client.
//
// A Client composes a connection.Session (one live transport at a time),
// a reconnect.Scheduler (exponential backoff after abnormal closes) and a
// router.Router (type-keyed subscriber registry). Subscriptions live on
// the Client, not the Session, so they survive reconnects.
//
// Usage:
//
//	c := push.New(push.DefaultConfig(), push.WithLogger(logger))
//	c.SubscribeFunc("queue_update", func(ev router.Event) error { ... })
//	if err := c.Open(ctx); err != nil {
//		// reconnects are already scheduled
//	}
//	defer c.Close()
package push
