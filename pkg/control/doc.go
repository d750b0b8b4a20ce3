// Package control implements the daemon side of the control-plane
// protocol: client session tracking, request routing to the device
// manager, and event broadcast to subscribed sessions.
//
// One Handler serves all sessions. Requests on different sessions for
// different devices run concurrently; ordering guarantees come from the
// per-device command queues, not from the handler.
package control
