package credstore

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// ChangePasswordMessage rotates a password. Credential is either the
// pending verification token or the current password.
type ChangePasswordMessage struct {
	Login      string `json:"login"`
	Credential string `json:"credential"`
	Password   string `json:"password"`
	OnChanged  func(identity *Identity)
}

func (e ChangePasswordMessage) Type() string { return "account.password_change" }

type ChangePasswordHandler struct {
	manager *Manager
}

func NewChangePasswordHandler(manager *Manager) *ChangePasswordHandler {
	return &ChangePasswordHandler{manager: manager}
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	identity, err := h.manager.ChangePassword(ctx, event.Login, event.Credential, event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to change password")
	}

	if event.OnChanged != nil {
		event.OnChanged(identity)
	}

	return nil
}
