package intelapi

import (
	"fmt"

	"github.com/c360studio/semstreams/component"
)

// RegistryInterface defines the minimal interface needed for registration.
type RegistryInterface interface {
	RegisterWithConfig(component.RegistrationConfig) error
}

// Register registers the intelligence-api component with the given registry.
func Register(registry RegistryInterface) error {
	if registry == nil {
		return fmt.Errorf("registry cannot be nil")
	}
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "intelligence-api",
		Factory:     NewComponent,
		Schema:      intelAPISchema,
		Type:        "processor",
		Protocol:    "intel",
		Domain:      "engagement",
		Description: "Compiles cognitive-frame prompts with retrieved project evidence",
		Version:     "0.1.0",
	})
}
