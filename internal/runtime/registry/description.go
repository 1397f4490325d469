package registry

import (
	"fmt"

	"github.com/drblury/topicflow/internal/runtime/schema"
)

// Messages builds a registry of dynamic messages from a description.
func Messages(desc schema.Description) (*Registry[*schema.Message], error) {
	descs, err := desc.Descriptors()
	if err != nil {
		return nil, err
	}
	return Build[*schema.Message](descs...)
}

// LoadMessages reads a description file and builds its registry.
func LoadMessages(path string) (*Registry[*schema.Message], error) {
	desc, err := schema.LoadDescription(path)
	if err != nil {
		return nil, err
	}
	reg, err := Messages(desc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}
