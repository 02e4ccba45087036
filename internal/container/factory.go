package container

import (
	"fmt"

	"wasdeploy/internal/config"
)

// NewContainerFromKind creates an unconfigured container of kind.
func NewContainerFromKind(kind config.Kind) (Container, error) {
	switch kind {
	case config.KindLibertyManaged:
		return NewManaged(), nil
	case config.KindLibertyRemote:
		return NewLibertyRemote(), nil
	case config.KindWASRemote:
		return NewWASRemote(), nil
	default:
		return nil, fmt.Errorf("unsupported container kind: %s (supported: %s, %s, %s)",
			kind, config.KindLibertyManaged, config.KindLibertyRemote, config.KindWASRemote)
	}
}

// New creates a container for cfg.Kind and sets it up with cfg.
func New(cfg config.Config) (Container, error) {
	c, err := NewContainerFromKind(cfg.Kind)
	if err != nil {
		return nil, err
	}
	if err := c.Setup(cfg); err != nil {
		return nil, err
	}
	return c, nil
}
