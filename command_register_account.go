package credstore

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type RegisterAccountMessage struct {
	Username     string         `json:"username"`
	Email        string         `json:"email"`
	Password     string         `json:"password"`
	Level        *int64         `json:"level,omitempty"`
	Verified     bool           `json:"verified,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
	OnRegistered func(reg *Registration)
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

type RegisterAccountHandler struct {
	manager *Manager
}

// NewRegisterAccountHandler creates an account and hands the registration,
// including any verification token, to the message callback.
func NewRegisterAccountHandler(manager *Manager) *RegisterAccountHandler {
	return &RegisterAccountHandler{manager: manager}
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	reg, err := h.manager.Create(ctx, NewAccount{
		Username: event.Username,
		Email:    event.Email,
		Password: event.Password,
		Level:    event.Level,
		Verified: event.Verified,
		Data:     event.Data,
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account registration failed")
	}

	if event.OnRegistered != nil {
		event.OnRegistered(reg)
	}

	return nil
}
