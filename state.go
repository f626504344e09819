package credstore

// VerificationState is the derived lifecycle state of an account.
type VerificationState string

const (
	// StateUnverified: a verification token is pending and login is refused.
	StateUnverified VerificationState = "unverified"
	// StateVerified: no pending token and the verified flag is set.
	StateVerified VerificationState = "verified"
	// StatePending covers a verified account holding a reissued token, and
	// an account whose password was changed with the current password.
	StatePending VerificationState = "pending"
)

// State derives the verification state from the stored columns.
func (a *Account) State() VerificationState {
	switch {
	case a == nil:
		return ""
	case a.IsVerified():
		return StateVerified
	case !a.Verified && a.VerificationToken != nil:
		return StateUnverified
	default:
		return StatePending
	}
}

// CanLogin reports whether Login would consider the account
func (a *Account) CanLogin() bool {
	return a != nil && a.Verified
}

// stateAfter returns the state an account lands in once the given columns
// are written.
func stateAfter(hasToken, verified bool) VerificationState {
	candidate := &Account{Verified: verified}
	if hasToken {
		token := ""
		candidate.VerificationToken = &token
	}
	return candidate.State()
}
