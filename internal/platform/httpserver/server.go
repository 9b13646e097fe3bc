package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	aliasregistry "cascade/contexts/donation-core/alias-registry"
	aliaserrors "cascade/contexts/donation-core/alias-registry/domain/errors"
	aliashttp "cascade/contexts/donation-core/alias-registry/transport/http"
	distributionledger "cascade/contexts/donation-core/distribution-ledger"
	ledgererrors "cascade/contexts/donation-core/distribution-ledger/domain/errors"
	ledgerhttp "cascade/contexts/donation-core/distribution-ledger/transport/http"
	_ "cascade/internal/platform/httpserver/docs"

	httpSwagger "github.com/swaggo/http-swagger"
)

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	ledger distributionledger.Module
	alias  aliasregistry.Module
}

func New(
	ledger distributionledger.Module,
	alias aliasregistry.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		ledger: ledger,
		alias:  alias,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the route table for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /v1/ledger/identifiers", s.handleRegister)
	s.mux.HandleFunc("POST /v1/ledger/identifiers/{identifier}/transfer-ownership", s.handleTransferOwnership)
	s.mux.HandleFunc("PUT /v1/ledger/identifiers/{identifier}/rules", s.handleSetRules)
	s.mux.HandleFunc("GET /v1/ledger/identifiers/{identifier}/rules", s.handleGetRules)
	s.mux.HandleFunc("GET /v1/ledger/identifiers/{identifier}/owner", s.handleGetOwner)
	s.mux.HandleFunc("POST /v1/ledger/identifiers/{identifier}/donations", s.handleDonate)
	s.mux.HandleFunc("POST /v1/ledger/identifiers/{identifier}/distributions", s.handleDistribute)
	s.mux.HandleFunc("POST /v1/ledger/identifiers/{identifier}/claims", s.handleClaim)
	s.mux.HandleFunc("POST /v1/ledger/identifiers/{identifier}/distribute-and-claim", s.handleDistributeAndClaim)

	s.mux.HandleFunc("GET /v1/ledger/identifiers/{identifier}/pool", s.counterRoute(
		func(ctx context.Context, id, asset string) (*big.Int, error) {
			return s.ledger.Service.GetPool(ctx, id, asset)
		}))
	s.mux.HandleFunc("GET /v1/ledger/identifiers/{identifier}/unclaimed", s.counterRoute(
		func(ctx context.Context, id, asset string) (*big.Int, error) {
			return s.ledger.Service.GetUnclaimed(ctx, id, asset)
		}))
	s.mux.HandleFunc("GET /v1/ledger/identifiers/{identifier}/total-received", s.counterRoute(
		func(ctx context.Context, id, asset string) (*big.Int, error) {
			return s.ledger.Service.GetTotalReceived(ctx, id, asset)
		}))
	s.mux.HandleFunc("GET /v1/ledger/identifiers/{identifier}/total-received-from-cascade", s.counterRoute(
		func(ctx context.Context, id, asset string) (*big.Int, error) {
			return s.ledger.Service.GetTotalReceivedFromCascade(ctx, id, asset)
		}))
	s.mux.HandleFunc("GET /v1/ledger/identifiers/{identifier}/total-forwarded", s.counterRoute(
		func(ctx context.Context, id, asset string) (*big.Int, error) {
			return s.ledger.Service.GetTotalForwarded(ctx, id, asset)
		}))
	s.mux.HandleFunc("GET /v1/ledger/identifiers/{identifier}/donors/{donor}", s.handleGetDonorToIdentifier)
	s.mux.HandleFunc("GET /v1/ledger/donors/{donor}/total", s.handleGetDonorTotal)
	s.mux.HandleFunc("GET /v1/ledger/assets/{asset}/grand-total", s.handleGetGrandTotal)
	s.mux.HandleFunc("GET /v1/ledger/principals/{principal}/paid", s.handleGetPaidTo)

	s.mux.HandleFunc("POST /v1/aliases", s.handleSetNickname)
	s.mux.HandleFunc("GET /v1/aliases/{nickname}", s.handleGetNicknameOwner)
	s.mux.HandleFunc("GET /v1/principals/{principal}/nickname", s.handleGetNickname)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req ledgerhttp.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.ledger.Handler.RegisterHandler(r.Context(), req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	var req ledgerhttp.TransferOwnershipRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.ledger.Handler.TransferOwnershipHandler(r.Context(), r.PathValue("identifier"), req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetRules(w http.ResponseWriter, r *http.Request) {
	var req ledgerhttp.SetRulesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.ledger.Handler.SetRulesHandler(r.Context(), r.PathValue("identifier"), req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetRules(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ledger.Handler.GetRulesHandler(r.Context(), r.PathValue("identifier"))
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetOwner(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ledger.Handler.GetOwnerHandler(r.Context(), r.PathValue("identifier"))
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDonate(w http.ResponseWriter, r *http.Request) {
	var req ledgerhttp.DonateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.ledger.Handler.DonateHandler(r.Context(), r.PathValue("identifier"), req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDistribute(w http.ResponseWriter, r *http.Request) {
	var req ledgerhttp.DistributeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.ledger.Handler.DistributeHandler(r.Context(), r.PathValue("identifier"), req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req ledgerhttp.ClaimRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.ledger.Handler.ClaimHandler(r.Context(), r.PathValue("identifier"), req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDistributeAndClaim(w http.ResponseWriter, r *http.Request) {
	var req ledgerhttp.DistributeAndClaimRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.ledger.Handler.DistributeAndClaimHandler(r.Context(), r.PathValue("identifier"), req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) counterRoute(
	read func(ctx context.Context, id string, asset string) (*big.Int, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asset, ok := requireAsset(w, r)
		if !ok {
			return
		}
		id := r.PathValue("identifier")
		resp, err := s.ledger.Handler.CounterHandler(r.Context(), func(ctx context.Context) (*big.Int, error) {
			return read(ctx, id, asset)
		})
		if err != nil {
			writeLedgerDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleGetDonorToIdentifier(w http.ResponseWriter, r *http.Request) {
	asset, ok := requireAsset(w, r)
	if !ok {
		return
	}
	resp, err := s.ledger.Handler.CounterHandler(r.Context(), func(ctx context.Context) (*big.Int, error) {
		return s.ledger.Service.GetDonorToIdentifier(ctx, r.PathValue("donor"), r.PathValue("identifier"), asset)
	})
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetDonorTotal(w http.ResponseWriter, r *http.Request) {
	asset, ok := requireAsset(w, r)
	if !ok {
		return
	}
	resp, err := s.ledger.Handler.CounterHandler(r.Context(), func(ctx context.Context) (*big.Int, error) {
		return s.ledger.Service.GetDonorTotal(ctx, r.PathValue("donor"), asset)
	})
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetGrandTotal(w http.ResponseWriter, r *http.Request) {
	resp, err := s.ledger.Handler.CounterHandler(r.Context(), func(ctx context.Context) (*big.Int, error) {
		return s.ledger.Service.GetGrandTotal(ctx, r.PathValue("asset"))
	})
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPaidTo(w http.ResponseWriter, r *http.Request) {
	asset, ok := requireAsset(w, r)
	if !ok {
		return
	}
	resp, err := s.ledger.Handler.CounterHandler(r.Context(), func(ctx context.Context) (*big.Int, error) {
		return s.ledger.Service.GetPaidTo(ctx, r.PathValue("principal"), asset)
	})
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetNickname(w http.ResponseWriter, r *http.Request) {
	var req aliashttp.SetNicknameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.alias.Handler.SetNicknameHandler(r.Context(), req)
	if err != nil {
		writeAliasDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetNicknameOwner(w http.ResponseWriter, r *http.Request) {
	resp, err := s.alias.Handler.GetNicknameOwnerHandler(r.Context(), r.PathValue("nickname"))
	if err != nil {
		writeAliasDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetNickname(w http.ResponseWriter, r *http.Request) {
	resp, err := s.alias.Handler.GetNicknameHandler(r.Context(), r.PathValue("principal"))
	if err != nil {
		writeAliasDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return false
	}
	return true
}

func requireAsset(w http.ResponseWriter, r *http.Request) (string, bool) {
	asset := strings.TrimSpace(r.URL.Query().Get("asset"))
	if asset == "" {
		writeLedgerError(w, http.StatusBadRequest, "asset_required", "asset query parameter is required")
		return "", false
	}
	return asset, true
}

func writeLedgerDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledgererrors.ErrNotFound),
		errors.Is(err, ledgererrors.ErrRulesNotSet):
		writeLedgerError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ledgererrors.ErrNotOwner),
		errors.Is(err, ledgererrors.ErrUnauthorized):
		writeLedgerError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, ledgererrors.ErrAlreadyRegistered):
		writeLedgerError(w, http.StatusConflict, "already_registered", err.Error())
	case errors.Is(err, ledgererrors.ErrNothingToDistribute):
		writeLedgerError(w, http.StatusConflict, "nothing_to_distribute", err.Error())
	case errors.Is(err, ledgererrors.ErrTooManyRules),
		errors.Is(err, ledgererrors.ErrSelfReference),
		errors.Is(err, ledgererrors.ErrRecipientNotRegistered),
		errors.Is(err, ledgererrors.ErrInvalidPercentage),
		errors.Is(err, ledgererrors.ErrRulesExceedMax):
		writeLedgerError(w, http.StatusUnprocessableEntity, "invalid_rule_set", err.Error())
	case errors.Is(err, ledgererrors.ErrInvalidAmount),
		errors.Is(err, ledgererrors.ErrInvalidInput):
		writeLedgerError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ledgererrors.ErrTransferFailed):
		writeLedgerError(w, http.StatusPaymentRequired, "transfer_failed", err.Error())
	default:
		writeLedgerError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeAliasDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, aliaserrors.ErrAliasTaken):
		writeAliasError(w, http.StatusConflict, "alias_taken", err.Error())
	case errors.Is(err, aliaserrors.ErrUnauthorized):
		writeAliasError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, aliaserrors.ErrInvalidInput):
		writeAliasError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeAliasError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeLedgerError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ledgerhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeAliasError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, aliashttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
