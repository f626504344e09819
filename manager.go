package credstore

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Manager owns the account lifecycle: creation, login, verification,
// password rotation and the data blob. It only reaches password material
// through its Codec.
type Manager struct {
	repo             RepositoryManager
	codec            Codec
	logger           Logger
	now              func() time.Time
	lastLoginTimeout time.Duration
	activity         ActivitySink
	pending          sync.WaitGroup
}

// Option customizes a Manager
type Option func(*Manager)

// WithLogger overrides the default stdout logger
func WithLogger(logger Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock injects a custom clock (useful for tests)
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithCodec replaces the credential codec
func WithCodec(codec Codec) Option {
	return func(m *Manager) {
		m.codec = codec
	}
}

// WithIterations sets the PBKDF2 cost. Values under MinIterations are raised.
func WithIterations(iterations int) Option {
	return func(m *Manager) {
		m.codec = NewCodec(iterations)
	}
}

// WithActivitySink sets the sink used to emit lifecycle events
func WithActivitySink(sink ActivitySink) Option {
	return func(m *Manager) {
		m.activity = normalizeActivitySink(sink)
	}
}

// WithLastLoginTimeout bounds the background lastlogin write
func WithLastLoginTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		if timeout > 0 {
			m.lastLoginTimeout = timeout
		}
	}
}

// NewManager returns a lifecycle manager over repo
func NewManager(repo RepositoryManager, opts ...Option) *Manager {
	m := &Manager{
		repo:             repo,
		codec:            NewCodec(MinIterations),
		logger:           defLogger{},
		now:              time.Now,
		lastLoginTimeout: DefaultLastLoginTimeout,
		activity:         noopActivitySink{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// NewManagerFromConfig applies the config's cost and timeout settings
func NewManagerFromConfig(repo RepositoryManager, cfg Config, opts ...Option) *Manager {
	base := []Option{
		WithIterations(cfg.Iterations),
		WithLastLoginTimeout(cfg.LastLoginTimeout),
	}
	return NewManager(repo, append(base, opts...)...)
}

// Codec returns the codec used for hashing
func (m *Manager) Codec() Codec {
	return m.codec
}

// Wait blocks until background lastlogin writes have finished
func (m *Manager) Wait() {
	m.pending.Wait()
}

// Close waits for background writes. The database handle is owned by the
// caller and stays open.
func (m *Manager) Close() error {
	m.Wait()
	return nil
}

func (m *Manager) timestamp() int64 {
	return m.now().Unix()
}

// Create validates the input and inserts a new account. The verification
// token is returned so it can be delivered out of band; it is nil when the
// account is created verified.
func (m *Manager) Create(ctx context.Context, input NewAccount) (*Registration, error) {
	account, err := input.validate()
	if err != nil {
		return nil, err
	}

	data, err := encodeData(account.data)
	if err != nil {
		return nil, err
	}

	now := m.timestamp()
	salt := m.codec.Salt()

	record := &Account{
		Username:     account.username,
		Email:        account.email,
		Salt:         salt,
		PasswordHash: m.codec.Hash(account.username, account.password, salt),
		Level:        account.level,
		Created:      now,
		Updated:      now,
		Data:         data,
	}

	if account.verified {
		record.Verified = true
	} else {
		token := m.codec.Token()
		record.VerificationToken = &token
	}

	record, err = m.repo.Accounts().Insert(ctx, record)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("created account id=%d username=%s", record.ID, record.Username)
	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventAccountCreated,
		AccountID: record.ID,
		Username:  record.Username,
		ToState:   record.State(),
		Metadata:  map[string]any{"level": record.Level},
	})

	return &Registration{
		ID:                record.ID,
		Username:          record.Username,
		VerificationToken: record.VerificationToken,
	}, nil
}

// Get returns the public profile for an id or username
func (m *Manager) Get(ctx context.Context, ident Identifier) (*Profile, error) {
	record, err := m.repo.Accounts().Get(ctx, ident)
	if err != nil {
		return nil, err
	}
	return record.Profile()
}

// Check reports whether username is taken
func (m *Manager) Check(ctx context.Context, username string) (bool, error) {
	return m.repo.Accounts().Exists(ctx, username)
}

// Login authenticates a verified account by username or email. The
// lastlogin write happens in the background and never fails the login; the
// result carries the previous lastlogin value.
func (m *Manager) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	record, err := m.repo.Accounts().GetByLogin(ctx, login, true)
	if err != nil {
		return nil, err
	}

	if !m.codec.Matches(record.Username, password, record.Salt, record.PasswordHash) {
		m.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			AccountID: record.ID,
			Username:  record.Username,
			Metadata:  map[string]any{"reason": TextCodePasswordMismatch},
		})
		return nil, authenticationError("password does not match", TextCodePasswordMismatch)
	}

	m.trackLogin(ctx, record.ID)
	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		AccountID: record.ID,
		Username:  record.Username,
	})

	return &LoginResult{
		ID:        record.ID,
		Username:  record.Username,
		Level:     record.Level,
		LastLogin: record.LastLogin,
	}, nil
}

func (m *Manager) trackLogin(ctx context.Context, id int64) {
	at := m.timestamp()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.lastLoginTimeout)

	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		defer cancel()
		if err := m.repo.Accounts().UpdateLastLogin(ctx, id, at); err != nil {
			m.logger.Warn("failed to track login for account id=%d: %v", id, err)
		}
	}()
}

// Verify consumes a verification token: UNVERIFIED -> VERIFIED.
func (m *Manager) Verify(ctx context.Context, token string) (*Identity, error) {
	var identity *Identity
	var from VerificationState

	err := m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := m.repo.Accounts().GetByTokenTx(ctx, tx, token)
		if err != nil {
			return err
		}

		verified := true
		n, err := m.repo.Accounts().UpdateVerificationTx(ctx, tx, record.ID, nil, &verified)
		if err != nil {
			return err
		}
		if n != 1 {
			return notFoundError("verification failed", TextCodeVerificationFailed)
		}

		identity = record.Identity()
		from = record.State()
		return nil
	})
	if err != nil {
		return nil, m.txError(err, "account verification failed")
	}

	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventAccountVerified,
		AccountID: identity.ID,
		Username:  identity.Username,
		FromState: from,
		ToState:   StateVerified,
	})

	return identity, nil
}

// Reset issues a new token and moves the account to UNVERIFIED whatever its
// current state, revoking login until the token is verified.
func (m *Manager) Reset(ctx context.Context, ident Identifier) (*TokenGrant, error) {
	verified := false
	return m.issueToken(ctx, ident, &verified, ActivityEventTokenReset)
}

// Reissue issues a new token without touching the verified flag, so a
// verified account can still log in.
func (m *Manager) Reissue(ctx context.Context, ident Identifier) (*TokenGrant, error) {
	return m.issueToken(ctx, ident, nil, ActivityEventTokenReissued)
}

func (m *Manager) issueToken(ctx context.Context, ident Identifier, verified *bool, eventType ActivityEventType) (*TokenGrant, error) {
	var grant *TokenGrant
	var from, to VerificationState

	err := m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := m.repo.Accounts().GetTx(ctx, tx, ident)
		if err != nil {
			if IsNotFoundError(err) {
				return notFoundError("this user does not exist", TextCodeAccountNotFound).
					WithMetadata(map[string]any{"identifier": ident.String()})
			}
			return err
		}

		token := m.codec.Token()
		n, err := m.repo.Accounts().UpdateVerificationTx(ctx, tx, record.ID, &token, verified)
		if err != nil {
			return err
		}
		if n != 1 {
			return notFoundError("this user does not exist", TextCodeAccountNotFound).
				WithMetadata(map[string]any{"identifier": ident.String()})
		}

		grant = &TokenGrant{
			ID:                record.ID,
			Username:          record.Username,
			Email:             record.Email,
			VerificationToken: token,
		}

		from = record.State()
		if verified != nil {
			to = stateAfter(true, *verified)
		} else {
			to = stateAfter(true, record.Verified)
		}
		return nil
	})
	if err != nil {
		return nil, m.txError(err, "failed to issue verification token")
	}

	m.recordActivity(ctx, ActivityEvent{
		EventType: eventType,
		AccountID: grant.ID,
		Username:  grant.Username,
		FromState: from,
		ToState:   to,
	})

	return grant, nil
}

// ChangePassword rotates the password of the account matching the username
// or email. The credential is either the pending verification token or the
// current password. A token is single use: the token path consumes it and
// marks the account verified. The current password path keeps any pending
// token and clears the verified flag.
func (m *Manager) ChangePassword(ctx context.Context, login, credential, password string) (*Identity, error) {
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	var identity *Identity
	var from, to VerificationState
	method := "password"

	err := m.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := m.repo.Accounts().GetByLoginTx(ctx, tx, login, false)
		if err != nil {
			if IsNotFoundError(err) {
				return notFoundError("no such user", TextCodeAccountNotFound)
			}
			return err
		}

		byToken := record.VerificationToken != nil && *record.VerificationToken == credential
		if !byToken && !m.codec.Matches(record.Username, credential, record.Salt, record.PasswordHash) {
			return authenticationError("password or verification does not match", TextCodeCredentialMismatch)
		}

		salt := m.codec.Salt()
		hash := m.codec.Hash(record.Username, password, salt)

		n, err := m.repo.Accounts().UpdatePasswordTx(ctx, tx, record.ID, hash, salt, byToken, byToken, m.timestamp())
		if err != nil {
			return err
		}
		if n != 1 {
			return notFoundError("changing password failed", TextCodeAccountNotFound)
		}

		identity = record.Identity()
		from = record.State()
		to = stateAfter(record.VerificationToken != nil && !byToken, byToken)
		if byToken {
			method = "token"
		}
		return nil
	})
	if err != nil {
		return nil, m.txError(err, "failed to change password")
	}

	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventPasswordChanged,
		AccountID: identity.ID,
		Username:  identity.Username,
		FromState: from,
		ToState:   to,
		Metadata:  map[string]any{"method": method},
	})

	return identity, nil
}

// Delete removes the account with id
func (m *Manager) Delete(ctx context.Context, id int64) error {
	n, err := m.repo.Accounts().Delete(ctx, id)
	if err != nil {
		return err
	}
	if n != 1 {
		return notFoundError("this user did not exist", TextCodeAccountNotFound).
			WithMetadata(map[string]any{"id": id})
	}

	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventAccountDeleted,
		AccountID: id,
	})
	return nil
}

// UpdateData replaces the data blob of the account
func (m *Manager) UpdateData(ctx context.Context, ident Identifier, data map[string]any) error {
	raw, err := encodeData(data)
	if err != nil {
		return err
	}

	n, err := m.repo.Accounts().UpdateData(ctx, ident, raw, m.timestamp())
	if err != nil {
		return err
	}
	if n != 1 {
		return notFoundError("updating failed", TextCodeAccountNotFound).
			WithMetadata(map[string]any{"identifier": ident.String()})
	}

	event := ActivityEvent{EventType: ActivityEventDataUpdated, AccountID: ident.ID()}
	if ident.IsName() {
		event.Username = ident.Name()
	}
	m.recordActivity(ctx, event)
	return nil
}

func (m *Manager) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = m.now()
	}
	if err := normalizeActivitySink(m.activity).Record(ctx, event); err != nil {
		m.logger.Warn("activity sink error for %s: %v", event.EventType, err)
	}
}

func (m *Manager) txError(err error, message string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, message)
}
