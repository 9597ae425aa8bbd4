package ports

import "go.trai.ch/weave/internal/core/domain"

// ConfigLoader defines the interface for loading the project configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load finds the configuration file named name, starting at cwd and walking
	// up, and returns the project it describes.
	Load(cwd, name string) (*domain.Project, error)
}
