// Package service assembles the daemon: device manager, render
// pipeline, control-plane server, and event broker, tied together by a
// lifecycle state machine (starting, running, draining, stopped).
//
// Fatal configuration errors abort startup. Shutdown drains in-flight
// device commands, flushes dirty profiles, and reports anything that
// could not be persisted within the drain timeout.
package service
