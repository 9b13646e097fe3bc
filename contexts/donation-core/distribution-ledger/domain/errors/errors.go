package errors

import "errors"

var (
	ErrInvalidInput           = errors.New("distribution ledger input is invalid")
	ErrNotFound               = errors.New("identifier is not registered")
	ErrAlreadyRegistered      = errors.New("identifier is already registered")
	ErrNotOwner               = errors.New("caller is not the identifier owner")
	ErrUnauthorized           = errors.New("caller identity could not be verified")
	ErrTooManyRules           = errors.New("rule set has more than the maximum number of rules")
	ErrSelfReference          = errors.New("rule set must not reference its own identifier")
	ErrRecipientNotRegistered = errors.New("rule recipient is not a registered identifier")
	ErrInvalidPercentage      = errors.New("rule share must be between 1 and 10000 basis points")
	ErrRulesExceedMax         = errors.New("rule shares exceed 10000 basis points in total")
	ErrInvalidAmount          = errors.New("donation amount must be positive")
	ErrRulesNotSet            = errors.New("rule set is missing for identifier")
	ErrNothingToDistribute    = errors.New("nothing to move for identifier and asset")
	ErrTransferFailed         = errors.New("asset transfer failed")
)
