// Package builtin provides the action kinds paneld ships with: "toggle"
// (a stateful on/off button) and "folder" (opens a child profile node).
// External plugins register additional kinds through the same Registry.
package builtin
