// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Owns the one physical connection to the chat endpoint
//   - Coalesces concurrent connect requests onto a single in-flight attempt
//   - Retries failed or dropped connections at a fixed interval, up to a bound
//   - Suppresses reconnection after an intentional Close
//   - Publishes open/message/error/close events on a channel
package connection
