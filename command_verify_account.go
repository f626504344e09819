package credstore

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type VerifyAccountMessage struct {
	Token      string `json:"token"`
	OnVerified func(identity *Identity)
}

func (e VerifyAccountMessage) Type() string { return "account.verify" }

type VerifyAccountHandler struct {
	manager *Manager
}

func NewVerifyAccountHandler(manager *Manager) *VerifyAccountHandler {
	return &VerifyAccountHandler{manager: manager}
}

func (h *VerifyAccountHandler) Execute(ctx context.Context, event VerifyAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during account verification")
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyAccountHandler) execute(ctx context.Context, event VerifyAccountMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if event.Token == "" {
		return goerrors.New("verification token is required", goerrors.CategoryBadInput).
			WithTextCode(TextCodeVerificationFailed).
			WithCode(goerrors.CodeBadRequest)
	}

	identity, err := h.manager.Verify(ctx, event.Token)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to verify account")
	}

	if event.OnVerified != nil {
		event.OnVerified(identity)
	}

	return nil
}
