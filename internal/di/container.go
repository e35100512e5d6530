// Package di provides dependency injection configuration for the Saucier server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/saucierapp/saucier-server/internal/di/providers"
	"github.com/saucierapp/saucier-server/internal/logger"
	"github.com/saucierapp/saucier-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)

	// Recipe server client
	do.Provide(injector, providers.ProvideUpstreamClient)

	// Business services
	do.Provide(injector, providers.ProvideWorkspaceService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap eagerly instantiates all services so startup failures
// surface immediately instead of on first request.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[service.UpstreamClient](injector)
	_ = do.MustInvoke[*service.WorkspaceService](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
