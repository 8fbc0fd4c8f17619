//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/worldstore/internal/config"
	"github.com/zeusync/worldstore/internal/world"
)

func InitializeWorld(cfg *config.Config) (*world.World, error) {
	wire.Build(ProviderSet)
	return nil, nil
}
