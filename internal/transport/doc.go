// Package transport abstracts the full-duplex socket underneath the chat client.
//
// A Dialer opens a Conn; a Conn exposes send/close plus channels for inbound
// frames and terminal errors. The production implementation is a gorilla
// WebSocket with ping/pong keepalive. Tests use the transporttest fakes.
package transport
