// Package clock abstracts the timer operations used by the reconnect
// scheduler so tests can drive backoff delays deterministically.
//
// Production code uses Real(); tests use Fake() and call Advance.
package clock
