package credstore_test

import (
	"context"
	"database/sql"
	"testing"

	credstore "github.com/goliatone/go-credstore"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegisterAccountHandler(t *testing.T) {
	manager, _, accounts := newMockManager()

	accounts.On("Insert", mock.Anything, mock.MatchedBy(func(a *credstore.Account) bool {
		return a.Username == "new_user" && a.Email == "new@example.com" && a.VerificationToken != nil
	})).Return(&credstore.Account{ID: 11, Username: "new_user", VerificationToken: ptr("tok")}, nil).Once()

	var reg *credstore.Registration
	err := credstore.NewRegisterAccountHandler(manager).Execute(context.Background(), credstore.RegisterAccountMessage{
		Username:     "New User",
		Email:        "NEW@example.com",
		Password:     "password1",
		OnRegistered: func(r *credstore.Registration) { reg = r },
	})
	require.NoError(t, err)
	require.NotNil(t, reg)
	assert.EqualValues(t, 11, reg.ID)
	assert.Equal(t, "tok", *reg.VerificationToken)

	accounts.AssertExpectations(t)
}

func TestRegisterAccountHandler_ValidationError(t *testing.T) {
	manager, _, _ := newMockManager()

	called := false
	err := credstore.NewRegisterAccountHandler(manager).Execute(context.Background(), credstore.RegisterAccountMessage{
		Username:     "bob",
		OnRegistered: func(*credstore.Registration) { called = true },
	})
	require.Error(t, err)
	assert.True(t, credstore.IsValidationError(err))
	assert.False(t, called)

	var richErr *goerrors.Error
	assert.True(t, goerrors.As(err, &richErr))
}

func TestHandlers_CancelledContext(t *testing.T) {
	manager, _, _ := newMockManager()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	errs := []error{
		credstore.NewRegisterAccountHandler(manager).Execute(ctx, credstore.RegisterAccountMessage{}),
		credstore.NewVerifyAccountHandler(manager).Execute(ctx, credstore.VerifyAccountMessage{Token: "t"}),
		credstore.NewVerificationRequestHandler(manager).Execute(ctx, credstore.VerificationRequestMessage{}),
		credstore.NewChangePasswordHandler(manager).Execute(ctx, credstore.ChangePasswordMessage{}),
	}

	for _, err := range errs {
		require.Error(t, err)
		assert.True(t, goerrors.IsCategory(err, goerrors.CategoryOperation))
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestVerifyAccountHandler(t *testing.T) {
	manager, repo, accounts := newMockManager()
	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil).Once()

	accounts.On("GetByTokenTx", mock.Anything, mock.Anything, "tok").
		Return(&credstore.Account{ID: 3, Username: "bob", Email: "bob@example.com"}, nil).Once()
	accounts.On("UpdateVerificationTx", mock.Anything, mock.Anything, int64(3), (*string)(nil), ptr(true)).
		Return(int64(1), nil).Once()

	var identity *credstore.Identity
	err := credstore.NewVerifyAccountHandler(manager).Execute(context.Background(), credstore.VerifyAccountMessage{
		Token:      "tok",
		OnVerified: func(id *credstore.Identity) { identity = id },
	})
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, "bob@example.com", identity.Email)
}

func TestVerifyAccountHandler_EmptyToken(t *testing.T) {
	manager, repo, _ := newMockManager()

	err := credstore.NewVerifyAccountHandler(manager).Execute(context.Background(), credstore.VerifyAccountMessage{})
	require.Error(t, err)
	assert.True(t, goerrors.IsCategory(err, goerrors.CategoryBadInput))
	repo.AssertNotCalled(t, "RunInTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerificationRequestHandler(t *testing.T) {
	tests := []struct {
		name     string
		revoke   bool
		verified *bool
	}{
		{name: "revoke resets verification", revoke: true, verified: ptr(false)},
		{name: "reissue keeps verification", revoke: false, verified: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, repo, accounts := newMockManager()
			repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil).Once()

			accounts.On("GetTx", mock.Anything, mock.Anything, credstore.ByName("alice")).
				Return(&credstore.Account{ID: 1, Username: "alice", Email: "alice@example.com", Verified: true}, nil).Once()
			accounts.On("UpdateVerificationTx", mock.Anything, mock.Anything, int64(1), mock.AnythingOfType("*string"), tt.verified).
				Return(int64(1), nil).Once()

			var grant *credstore.TokenGrant
			err := credstore.NewVerificationRequestHandler(manager).
				WithLogger(testLogger{}).
				Execute(context.Background(), credstore.VerificationRequestMessage{
					Identifier: credstore.ByName("alice"),
					Revoke:     tt.revoke,
					OnToken:    func(g *credstore.TokenGrant) { grant = g },
				})
			require.NoError(t, err)
			require.NotNil(t, grant)
			assert.Equal(t, "alice@example.com", grant.Email)
			assert.Regexp(t, hex32, grant.VerificationToken)

			accounts.AssertExpectations(t)
		})
	}
}

func TestChangePasswordHandler(t *testing.T) {
	manager, repo, accounts := newMockManager()
	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).Return(nil).Once()

	token := "tok-carol"
	record := &credstore.Account{ID: 4, Username: "carol", Email: "carol@example.com", Salt: "s", PasswordHash: "h", VerificationToken: &token}
	accounts.On("GetByLoginTx", mock.Anything, mock.Anything, "carol@example.com", false).Return(record, nil).Once()
	accounts.On("UpdatePasswordTx", mock.Anything, mock.Anything, int64(4), mock.Anything, mock.Anything, true, true, fixedNow.Unix()).
		Return(int64(1), nil).Once()

	var identity *credstore.Identity
	err := credstore.NewChangePasswordHandler(manager).Execute(context.Background(), credstore.ChangePasswordMessage{
		Login:      "carol@example.com",
		Credential: token,
		Password:   "newpass99",
		OnChanged:  func(id *credstore.Identity) { identity = id },
	})
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.EqualValues(t, 4, identity.ID)

	accounts.AssertExpectations(t)
}
