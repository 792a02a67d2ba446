// Package persistence selects the user store configured for the process.
package persistence

import (
	"account/config"
	"account/internal/infra/persistence/memory"
	"account/internal/infra/persistence/mongodb"
	"account/internal/infra/persistence/postgres"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// Module provides repository.UserRepository for the configured storage driver.
// Only the selected backend's client is constructed.
func Module(cfg *config.Config) (fx.Option, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMongo:
		return fx.Options(
			fx.Provide(mongodb.New),
			fx.Provide(mongodb.NewUserRepository),
		), nil
	case config.StorageDriverPostgres:
		return fx.Options(
			fx.Provide(postgres.New),
			fx.Provide(postgres.NewUserRepository),
		), nil
	case config.StorageDriverMemory:
		return fx.Provide(memory.NewUserRepository), nil
	default:
		return nil, errors.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}
}
