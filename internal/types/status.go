package types

type TransferStatus string

const (
	StatusActive    TransferStatus = "active"
	StatusCompleted TransferStatus = "completed"
	StatusClaimed   TransferStatus = "claimed"
	StatusRejected  TransferStatus = "rejected"
	StatusRefunded  TransferStatus = "refunded"
)

// transitions is the full lifecycle table. completed, claimed and refunded are
// terminal; rejected still allows the sender-side refund.
var transitions = map[TransferStatus][]TransferStatus{
	StatusActive:   {StatusClaimed, StatusRejected},
	StatusRejected: {StatusRefunded},
}

func (s TransferStatus) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusClaimed, StatusRejected, StatusRefunded:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is a legal lifecycle step.
func (s TransferStatus) CanTransition(next TransferStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Predecessors returns every status from which s is directly reachable.
func (s TransferStatus) Predecessors() []TransferStatus {
	var from []TransferStatus
	for current, nexts := range transitions {
		for _, next := range nexts {
			if next == s {
				from = append(from, current)
			}
		}
	}
	return from
}

type Mode string

const (
	// ModeDirect settles immediately, the transfer is created already completed.
	ModeDirect Mode = "direct"
	// ModeSecure requires the recipient to submit a verification code before
	// the funds are claimable.
	ModeSecure Mode = "secure"
)

func (m Mode) Valid() bool {
	return m == ModeDirect || m == ModeSecure
}

type TokenKind string

const (
	TokenTON  TokenKind = "TON"
	TokenUSDT TokenKind = "USDT"
)

func (t TokenKind) Valid() bool {
	return t == TokenTON || t == TokenUSDT
}
