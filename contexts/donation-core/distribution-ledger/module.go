package distributionledger

import (
	"log/slog"

	httpadapter "cascade/contexts/donation-core/distribution-ledger/adapters/http"
	"cascade/contexts/donation-core/distribution-ledger/adapters/memory"
	"cascade/contexts/donation-core/distribution-ledger/application"
	"cascade/contexts/donation-core/distribution-ledger/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Service *application.Service
	Store   *memory.Store
	Bank    *memory.Bank
}

type Dependencies struct {
	Store                       ports.Store
	Transfers                   ports.AssetTransfer
	Authorizer                  ports.Authorizer
	Outbox                      ports.OutboxWriter
	Clock                       ports.Clock
	IDGenerator                 ports.IDGenerator
	CustodialAccount            string
	StrictRecipientRegistration bool
	Logger                      *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := &application.Service{
		Store:                       deps.Store,
		Transfers:                   deps.Transfers,
		Auth:                        deps.Authorizer,
		Outbox:                      deps.Outbox,
		Clock:                       deps.Clock,
		IDGen:                       deps.IDGenerator,
		CustodialAccount:            deps.CustodialAccount,
		StrictRecipientRegistration: deps.StrictRecipientRegistration,
		Logger:                      deps.Logger,
	}
	return Module{
		Service: service,
		Handler: httpadapter.Handler{
			Service: service,
			Logger:  deps.Logger,
		},
	}
}

func NewInMemoryModule(logger *slog.Logger, custodialAccount string) Module {
	store := memory.NewStore()
	bank := memory.NewBank()
	module := NewModule(Dependencies{
		Store:            store,
		Transfers:        bank,
		Authorizer:       memory.NewStaticAuthorizer(),
		Outbox:           store,
		Clock:            store,
		IDGenerator:      store,
		CustodialAccount: custodialAccount,
		Logger:           logger,
	})
	module.Store = store
	module.Bank = bank
	return module
}
