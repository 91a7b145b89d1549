package governance

import "errors"

var (
	ErrNotConfigured           = errors.New("governance contracts not configured")
	ErrNotConnected            = errors.New("wallet not connected")
	ErrProposalNotActive       = errors.New("proposal is not active")
	ErrAlreadyVoted            = errors.New("already voted on this proposal")
	ErrInsufficientVotingPower = errors.New("insufficient voting power")
	ErrInvalidInput            = errors.New("invalid input")
	ErrWrongState              = errors.New("proposal is not in the required state")
	ErrSoldOut                 = errors.New("membership collection sold out")
)
