package httpadapter

import (
	"context"
	"log/slog"
	"math/big"
	"strings"

	"cascade/contexts/donation-core/distribution-ledger/application"
	domainerrors "cascade/contexts/donation-core/distribution-ledger/domain/errors"
	"cascade/contexts/donation-core/distribution-ledger/ports"
	httptransport "cascade/contexts/donation-core/distribution-ledger/transport/http"
)

type Handler struct {
	Service *application.Service
	Logger  *slog.Logger
}

func (h Handler) RegisterHandler(ctx context.Context, req httptransport.RegisterRequest) (httptransport.StatusResponse, error) {
	if err := h.Service.RegisterIdentifier(ctx, req.Caller, req.Identifier); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "success"}, nil
}

func (h Handler) TransferOwnershipHandler(
	ctx context.Context,
	id string,
	req httptransport.TransferOwnershipRequest,
) (httptransport.StatusResponse, error) {
	if err := h.Service.TransferOwnership(ctx, req.Caller, id, req.NewOwner); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "success"}, nil
}

func (h Handler) SetRulesHandler(
	ctx context.Context,
	id string,
	req httptransport.SetRulesRequest,
) (httptransport.StatusResponse, error) {
	rules := make([]ports.Rule, 0, len(req.Rules))
	for _, rule := range req.Rules {
		rules = append(rules, ports.Rule{Recipient: rule.Recipient, ShareBPS: rule.ShareBPS})
	}
	if err := h.Service.SetRules(ctx, req.Caller, id, rules); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "success"}, nil
}

func (h Handler) DonateHandler(
	ctx context.Context,
	id string,
	req httptransport.DonateRequest,
) (httptransport.StatusResponse, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return httptransport.StatusResponse{}, domainerrors.ErrInvalidAmount
	}
	if err := h.Service.Donate(ctx, req.Caller, id, req.Asset, amount, req.DonorOverride); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "success"}, nil
}

func (h Handler) DistributeHandler(
	ctx context.Context,
	id string,
	req httptransport.DistributeRequest,
) (httptransport.StatusResponse, error) {
	minDistribution, err := parseOptionalAmount(req.MinDistribution)
	if err != nil {
		return httptransport.StatusResponse{}, domainerrors.ErrInvalidInput
	}
	if err := h.Service.Distribute(ctx, id, req.Asset, minDistribution); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "success"}, nil
}

func (h Handler) ClaimHandler(
	ctx context.Context,
	id string,
	req httptransport.ClaimRequest,
) (httptransport.AmountResponse, error) {
	claimed, err := h.Service.Claim(ctx, req.Caller, id, req.Asset, req.To)
	if err != nil {
		return httptransport.AmountResponse{}, err
	}
	return httptransport.AmountResponse{Status: "success", Amount: claimed.String()}, nil
}

func (h Handler) DistributeAndClaimHandler(
	ctx context.Context,
	id string,
	req httptransport.DistributeAndClaimRequest,
) (httptransport.AmountResponse, error) {
	minDistribution, err := parseOptionalAmount(req.MinDistribution)
	if err != nil {
		return httptransport.AmountResponse{}, domainerrors.ErrInvalidInput
	}
	claimed, err := h.Service.DistributeAndClaim(ctx, req.Caller, id, req.Asset, req.To, minDistribution)
	if err != nil {
		return httptransport.AmountResponse{}, err
	}
	return httptransport.AmountResponse{Status: "success", Amount: claimed.String()}, nil
}

func (h Handler) GetOwnerHandler(ctx context.Context, id string) (httptransport.OwnerResponse, error) {
	owner, found, err := h.Service.GetOwner(ctx, id)
	if err != nil {
		return httptransport.OwnerResponse{}, err
	}
	return httptransport.OwnerResponse{Status: "success", Owner: owner, Found: found}, nil
}

func (h Handler) GetRulesHandler(ctx context.Context, id string) (httptransport.RulesResponse, error) {
	rules, err := h.Service.GetRules(ctx, id)
	if err != nil {
		return httptransport.RulesResponse{}, err
	}
	resp := httptransport.RulesResponse{
		Status: "success",
		Rules:  make([]httptransport.RuleDTO, 0, len(rules)),
	}
	for _, rule := range rules {
		resp.Rules = append(resp.Rules, httptransport.RuleDTO{Recipient: rule.Recipient, ShareBPS: rule.ShareBPS})
	}
	return resp, nil
}

// CounterHandler serves every per-identifier amount accessor; which counter
// is read depends on the route that dispatched here.
func (h Handler) CounterHandler(
	ctx context.Context,
	read func(context.Context) (*big.Int, error),
) (httptransport.AmountResponse, error) {
	amount, err := read(ctx)
	if err != nil {
		return httptransport.AmountResponse{}, err
	}
	return httptransport.AmountResponse{Status: "success", Amount: amount.String()}, nil
}

func parseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return nil, domainerrors.ErrInvalidAmount
	}
	return amount, nil
}

func parseOptionalAmount(raw string) (*big.Int, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	return parseAmount(raw)
}
