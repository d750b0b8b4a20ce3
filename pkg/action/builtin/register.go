package builtin

import "github.com/panelkit/paneld/pkg/action"

// RegisterAll registers every built-in action kind.
func RegisterAll(registry *action.Registry) error {
	factories := []action.Factory{
		ToggleFactory(),
		FolderFactory(),
	}
	for _, factory := range factories {
		if err := registry.Register(factory); err != nil {
			return err
		}
	}
	return nil
}
