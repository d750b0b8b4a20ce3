// Package profile holds the button/profile tree of a device and its
// persistence.
//
// Nodes live in an arena addressed by opaque model.NodeID handles; folder
// bindings reference their child node by handle, so the tree has no
// ownership cycles. A Tree is owned exclusively by one device and is only
// touched from that device's command queue; the package itself does no
// locking.
//
// Store persists one versioned JSON document per device, written
// atomically (temp file + rename). Malformed or missing documents degrade
// to an in-memory default tree with a RecoverableError; documents with a
// future schema version fail closed with ErrSchema.
package profile
