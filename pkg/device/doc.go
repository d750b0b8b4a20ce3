// Package device owns per-device runtime state: the profile tree, the
// active-profile stack, and button bindings.
//
// Every mutation of one device's state runs on that device's command
// queue, a single goroutine applying closures in arrival order. That is
// the whole concurrency story: within a device, strict serialization;
// across devices, full parallelism; readers get deep-copied snapshots
// instead of holding the queue.
//
// Manager tracks attached devices and drives the attach/detach paths:
// profile load and binding materialization on attach, teardown hooks and
// a dirty-profile flush on detach.
package device
