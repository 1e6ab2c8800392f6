// Package reconnect implements the Reconnect Scheduler.
//
// The scheduler is an explicit state machine:
//
//	Idle ──open ok──▶ Connected ──abnormal close──▶ Scheduled ──timer──▶ (dial)
//	  ▲                  │                              │
//	  └──── Cancel ──────┴──────────────────────────────┤
//	                                                    ▼
//	                                               Exhausted
//
// Delays start at Policy.InitialDelay and double after every scheduled
// attempt up to Policy.MaxDelay. A successful open resets both the
// attempt counter and the delay.
package reconnect
