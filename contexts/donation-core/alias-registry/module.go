package aliasregistry

import (
	"log/slog"

	httpadapter "cascade/contexts/donation-core/alias-registry/adapters/http"
	"cascade/contexts/donation-core/alias-registry/adapters/memory"
	"cascade/contexts/donation-core/alias-registry/application"
	"cascade/contexts/donation-core/alias-registry/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Service *application.Service
	Store   *memory.Store
}

type Dependencies struct {
	Store       ports.Store
	Authorizer  ports.Authorizer
	Outbox      ports.OutboxWriter
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := &application.Service{
		Store:  deps.Store,
		Auth:   deps.Authorizer,
		Outbox: deps.Outbox,
		Clock:  deps.Clock,
		IDGen:  deps.IDGenerator,
		Logger: deps.Logger,
	}
	return Module{
		Service: service,
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Store:       store,
		Outbox:      store,
		Clock:       store,
		IDGenerator: store,
		Logger:      logger,
	})
	module.Store = store
	return module
}
