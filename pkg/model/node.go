package model

// NodeID is an opaque handle addressing a profile node inside its device's
// tree arena. Handles are device-local: a NodeID from one device never
// resolves in another device's tree.
type NodeID uint32

// NoNode is the zero handle; it never addresses a real node.
const NoNode NodeID = 0

// RootNode is the handle of every tree's root node.
const RootNode NodeID = 1
