package httpadapter

import (
	"context"
	"log/slog"

	"cascade/contexts/donation-core/alias-registry/application"
	httptransport "cascade/contexts/donation-core/alias-registry/transport/http"
)

type Handler struct {
	Service *application.Service
	Logger  *slog.Logger
}

func (h Handler) SetNicknameHandler(ctx context.Context, req httptransport.SetNicknameRequest) (httptransport.StatusResponse, error) {
	if err := h.Service.SetNickname(ctx, req.Caller, req.Nickname); err != nil {
		return httptransport.StatusResponse{}, err
	}
	return httptransport.StatusResponse{Status: "success"}, nil
}

func (h Handler) GetNicknameHandler(ctx context.Context, principal string) (httptransport.NicknameResponse, error) {
	nickname, found, err := h.Service.GetNickname(ctx, principal)
	if err != nil {
		return httptransport.NicknameResponse{}, err
	}
	return httptransport.NicknameResponse{Status: "success", Nickname: nickname, Found: found}, nil
}

func (h Handler) GetNicknameOwnerHandler(ctx context.Context, nickname string) (httptransport.NicknameOwnerResponse, error) {
	principal, found, err := h.Service.GetNicknameOwner(ctx, nickname)
	if err != nil {
		return httptransport.NicknameOwnerResponse{}, err
	}
	return httptransport.NicknameOwnerResponse{Status: "success", Principal: principal, Found: found}, nil
}
