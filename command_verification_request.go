package credstore

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// VerificationRequestMessage asks for a fresh verification token. With
// Revoke set the account is moved back to unverified (Reset), otherwise the
// verified flag is left alone (Reissue).
type VerificationRequestMessage struct {
	Identifier Identifier
	Revoke     bool
	OnToken    func(grant *TokenGrant)
}

func (e VerificationRequestMessage) Type() string { return "account.verification_request" }

type VerificationRequestHandler struct {
	manager *Manager
	logger  Logger
}

func NewVerificationRequestHandler(manager *Manager) *VerificationRequestHandler {
	return &VerificationRequestHandler{
		manager: manager,
		logger:  defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *VerificationRequestHandler) WithLogger(logger Logger) *VerificationRequestHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *VerificationRequestHandler) Execute(ctx context.Context, event VerificationRequestMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during verification request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerificationRequestHandler) execute(ctx context.Context, event VerificationRequestMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	issue := h.manager.Reissue
	if event.Revoke {
		issue = h.manager.Reset
	}

	grant, err := issue(ctx, event.Identifier)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue verification token")
	}

	if event.OnToken == nil {
		h.logger.Warn("verification token for account id=%d was not delivered", grant.ID)
		return nil
	}

	event.OnToken(grant)
	return nil
}
