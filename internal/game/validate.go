package game

import "errors"

// Rejection reasons. These are expected outcomes of hostile or buggy
// clients, surfaced to the caller in the response body; none of them is
// worth a server-side retry.
var (
	ErrIdentityMismatch = errors.New("user does not match signature")
	ErrTimeTooShort     = errors.New("time too short")
	ErrTimeTooLong      = errors.New("time too long")
	ErrShapeMismatch    = errors.New("invalid mode config")
)

// Submission is a parsed, claimed game outcome.
type Submission struct {
	UserID     int64
	Mode       string
	Rows       int
	Cols       int
	Mines      int
	IsWin      bool
	Score      int
	RoundToken string
}

// Verdict is the result of validating an acceptable submission.
type Verdict struct {
	// Suspicious marks a win implausibly close to world-record pace.
	// The submission is still recorded and counted normally, but the
	// player's durable suspicion flag must be set.
	Suspicious bool
}

// Validator applies domain policy to claimed outcomes.
type Validator struct {
	// MinWinSeconds and MaxWinSeconds bound plausible winning times,
	// inclusive on both ends. Checked for wins only.
	MinWinSeconds int
	MaxWinSeconds int
	// SuspicionThreshold flags expert wins faster than this.
	SuspicionThreshold int
}

// DefaultValidator returns a validator with the standard policy.
func DefaultValidator() *Validator {
	return &Validator{
		MinWinSeconds:      3,
		MaxWinSeconds:      3600,
		SuspicionThreshold: 30,
	}
}

// Validate applies the policy rules in order. verifiedID is the player
// identity proven by signature verification; it must match the claim.
func (v *Validator) Validate(verifiedID int64, sub Submission) (Verdict, error) {
	if sub.UserID != verifiedID {
		return Verdict{}, ErrIdentityMismatch
	}

	if sub.IsWin {
		if sub.Score < v.MinWinSeconds {
			return Verdict{}, ErrTimeTooShort
		}
		if sub.Score > v.MaxWinSeconds {
			return Verdict{}, ErrTimeTooLong
		}
	}

	if shape, ok := PresetShape(sub.Mode); ok {
		if sub.Rows != shape.Rows || sub.Cols != shape.Cols || sub.Mines != shape.Mines {
			return Verdict{}, ErrShapeMismatch
		}
	}

	// World-record pace on the hardest preset: accept but flag.
	suspicious := sub.IsWin && sub.Mode == ModeExpert && sub.Score < v.SuspicionThreshold
	return Verdict{Suspicious: suspicious}, nil
}
