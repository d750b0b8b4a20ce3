// Package wire defines the socket protocol of paneld: discrete JSON
// messages of shape {type, correlationId?, payload} carried in
// length-prefixed frames.
//
// Every request yields exactly one response with the same correlationId;
// event pushes carry no correlationId. Image payloads embedded in
// messages are deflate-compressed then base64-encoded text; the messages
// themselves are plain JSON.
package wire
