// Package chat implements the Chat Session façade.
//
// A Session composes the Connection Manager and the Message Correlator: it
// ensures the connection is open, wraps each chat turn in a wire envelope
// under a fresh correlation id, and blocks the caller until the matching
// response arrives, the response deadline passes, or the session is
// cleaned up. Any number of SendMessage calls may be in flight at once
// over the single connection; responses may arrive in any order.
package chat
