// Package correlator implements the Message Correlator component.
//
// The Correlator:
//   - Tracks outstanding requests by caller-supplied correlation id
//   - Routes each inbound envelope to the one caller awaiting it
//   - Enforces a per-request timeout
//   - Settles every request exactly once (response, timeout or cancellation)
package correlator
