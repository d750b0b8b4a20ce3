// Package model contains the shared data model for paneld: device capability
// descriptors, pixel formats, trigger kinds, button addressing, and the event
// types broadcast to control-plane clients.
//
// The package is a leaf: every other package depends on it, it depends on
// nothing but the standard library.
package model
