// Package transport provides the unix-domain-socket control plane:
// length-prefixed framing plus a callback-driven socket server and a
// matching dialer.
//
// Frames are a 4-byte big-endian payload length followed by the
// payload. The framing layer is protocol-agnostic; message semantics
// live in pkg/wire and pkg/control.
package transport
