// Package action defines the plugin capability surface of paneld: the
// Instance interface action plugins implement, the effects their event
// handlers may request, and the Registry mapping action-kind names to
// factories.
//
// The registry is populated once during daemon startup, before any device
// is attached, and is read-only afterwards. How plugin code gets loaded
// into the process is outside this package; it only consumes factories.
package action
