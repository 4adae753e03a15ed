// Package di provides dependency injection configuration for crate.
package di

import (
	"github.com/samber/do/v2"

	"github.com/crateapp/crate/internal/config"
	"github.com/crateapp/crate/internal/debounce"
	"github.com/crateapp/crate/internal/logger"
	"github.com/crateapp/crate/internal/sorter"
	"github.com/crateapp/crate/internal/watcher"
)

// NewContainer creates and configures the DI container with all providers.
// configPath selects the libraries file; empty means the default location.
func NewContainer(configPath string) *do.RootScope {
	injector := do.New()

	do.Provide(injector, func(do.Injector) (*config.Config, error) {
		return config.Load(configPath)
	})
	do.Provide(injector, ProvideLogger)
	do.Provide(injector, ProvideSorter)
	do.Provide(injector, ProvideDebouncer)
	do.Provide(injector, ProvideWatcher)

	return injector
}

// ProvideLogger provides the application logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	return logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.Logger.Environment,
	}), nil
}

// ProvideSorter provides the sorting engine.
func ProvideSorter(i do.Injector) (*sorter.Sorter, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return sorter.New(log.Logger), nil
}

// ProvideDebouncer provides the debounced event source.
func ProvideDebouncer(i do.Injector) (*debounce.Debouncer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return debounce.New(log.Logger, debounce.Options{
		Window: cfg.Watch.Window(),
	})
}

// ProvideWatcher provides the watch loop.
func ProvideWatcher(i do.Injector) (*watcher.Watcher, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	source := do.MustInvoke[*debounce.Debouncer](i)
	engine := do.MustInvoke[*sorter.Sorter](i)

	return watcher.New(log.Logger, cfg, source, engine)
}
