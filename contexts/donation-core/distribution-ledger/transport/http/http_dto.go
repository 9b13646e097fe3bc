package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RuleDTO struct {
	Recipient string `json:"recipient"`
	ShareBPS  uint32 `json:"share_bps"`
}

type RegisterRequest struct {
	Caller     string `json:"caller"`
	Identifier string `json:"identifier"`
}

type TransferOwnershipRequest struct {
	Caller   string `json:"caller"`
	NewOwner string `json:"new_owner"`
}

type SetRulesRequest struct {
	Caller string    `json:"caller"`
	Rules  []RuleDTO `json:"rules"`
}

type DonateRequest struct {
	Caller        string `json:"caller"`
	Asset         string `json:"asset"`
	Amount        string `json:"amount"`
	DonorOverride string `json:"donor_override,omitempty"`
}

type DistributeRequest struct {
	Asset           string `json:"asset"`
	MinDistribution string `json:"min_distribution,omitempty"`
}

type ClaimRequest struct {
	Caller string `json:"caller"`
	Asset  string `json:"asset"`
	To     string `json:"to,omitempty"`
}

type DistributeAndClaimRequest struct {
	Caller          string `json:"caller"`
	Asset           string `json:"asset"`
	To              string `json:"to,omitempty"`
	MinDistribution string `json:"min_distribution,omitempty"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type AmountResponse struct {
	Status string `json:"status"`
	Amount string `json:"amount"`
}

type OwnerResponse struct {
	Status string `json:"status"`
	Owner  string `json:"owner,omitempty"`
	Found  bool   `json:"found"`
}

type RulesResponse struct {
	Status string    `json:"status"`
	Rules  []RuleDTO `json:"rules"`
}
