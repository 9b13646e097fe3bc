package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SetNicknameRequest struct {
	Caller   string `json:"caller"`
	Nickname string `json:"nickname"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type NicknameResponse struct {
	Status   string `json:"status"`
	Nickname string `json:"nickname,omitempty"`
	Found    bool   `json:"found"`
}

type NicknameOwnerResponse struct {
	Status    string `json:"status"`
	Principal string `json:"principal,omitempty"`
	Found     bool   `json:"found"`
}
