package credstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
)

// Accounts is the record store the lifecycle manager runs against.
// Lookups return a not found error when no row matches; mutations report
// the number of affected rows so callers decide what a miss means.
type Accounts interface {
	Insert(ctx context.Context, record *Account) (*Account, error)
	InsertTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error)

	Get(ctx context.Context, ident Identifier) (*Account, error)
	GetTx(ctx context.Context, tx bun.IDB, ident Identifier) (*Account, error)
	GetByLogin(ctx context.Context, login string, verifiedOnly bool) (*Account, error)
	GetByLoginTx(ctx context.Context, tx bun.IDB, login string, verifiedOnly bool) (*Account, error)
	GetByToken(ctx context.Context, token string) (*Account, error)
	GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*Account, error)
	Exists(ctx context.Context, username string) (bool, error)

	UpdateVerification(ctx context.Context, id int64, token *string, verified *bool) (int64, error)
	UpdateVerificationTx(ctx context.Context, tx bun.IDB, id int64, token *string, verified *bool) (int64, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash, salt string, verified, clearToken bool, at int64) (int64, error)
	UpdatePasswordTx(ctx context.Context, tx bun.IDB, id int64, passwordHash, salt string, verified, clearToken bool, at int64) (int64, error)
	UpdateLastLogin(ctx context.Context, id int64, at int64) error
	UpdateData(ctx context.Context, ident Identifier, data string, at int64) (int64, error)

	Delete(ctx context.Context, id int64) (int64, error)
}

type accounts struct {
	db *bun.DB
}

var _ Accounts = (*accounts)(nil)

// NewAccountsRepository returns the bun backed Accounts store
func NewAccountsRepository(db *bun.DB) Accounts {
	return &accounts{db: db}
}

func (a *accounts) Insert(ctx context.Context, record *Account) (*Account, error) {
	return a.InsertTx(ctx, a.db, record)
}

func (a *accounts) InsertTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error) {
	if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
		return nil, storeError(err, "could not insert account")
	}
	return record, nil
}

func (a *accounts) Get(ctx context.Context, ident Identifier) (*Account, error) {
	return a.GetTx(ctx, a.db, ident)
}

func (a *accounts) GetTx(ctx context.Context, tx bun.IDB, ident Identifier) (*Account, error) {
	column, value := ident.column()
	return a.scanOne(ctx, tx.NewSelect().
		Where("?TableAlias.? = ?", bun.Ident(column), value),
		"no such user", TextCodeAccountNotFound,
	)
}

func (a *accounts) GetByLogin(ctx context.Context, login string, verifiedOnly bool) (*Account, error) {
	return a.GetByLoginTx(ctx, a.db, login, verifiedOnly)
}

func (a *accounts) GetByLoginTx(ctx context.Context, tx bun.IDB, login string, verifiedOnly bool) (*Account, error) {
	q := tx.NewSelect().
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.username = ?", login).
				WhereOr("?TableAlias.email = ?", login)
		})

	if verifiedOnly {
		q = q.Where("?TableAlias.verified = ?", true)
	}

	return a.scanOne(ctx, q, "user does not exist", TextCodeAccountNotFound)
}

func (a *accounts) GetByToken(ctx context.Context, token string) (*Account, error) {
	return a.GetByTokenTx(ctx, a.db, token)
}

func (a *accounts) GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*Account, error) {
	return a.scanOne(ctx, tx.NewSelect().
		Where("?TableAlias.verification_token = ?", token),
		"verification failed", TextCodeVerificationFailed,
	)
}

func (a *accounts) Exists(ctx context.Context, username string) (bool, error) {
	exists, err := a.db.NewSelect().
		Model((*Account)(nil)).
		Where("?TableAlias.username = ?", username).
		Exists(ctx)
	if err != nil {
		return false, storeError(err, "could not check username")
	}
	return exists, nil
}

func (a *accounts) UpdateVerification(ctx context.Context, id int64, token *string, verified *bool) (int64, error) {
	return a.UpdateVerificationTx(ctx, a.db, id, token, verified)
}

// UpdateVerificationTx sets the token column, and the verified flag when
// verified is not nil.
func (a *accounts) UpdateVerificationTx(ctx context.Context, tx bun.IDB, id int64, token *string, verified *bool) (int64, error) {
	q := tx.NewUpdate().
		Model((*Account)(nil)).
		Set("verification_token = ?", token).
		Where("id = ?", id)

	if verified != nil {
		q = q.Set("verified = ?", *verified)
	}

	return affected(q.Exec(ctx))
}

func (a *accounts) UpdatePassword(ctx context.Context, id int64, passwordHash, salt string, verified, clearToken bool, at int64) (int64, error) {
	return a.UpdatePasswordTx(ctx, a.db, id, passwordHash, salt, verified, clearToken, at)
}

// UpdatePasswordTx stores a new hash and salt. clearToken nulls the
// verification token, consuming it.
func (a *accounts) UpdatePasswordTx(ctx context.Context, tx bun.IDB, id int64, passwordHash, salt string, verified, clearToken bool, at int64) (int64, error) {
	q := tx.NewUpdate().
		Model((*Account)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("salt = ?", salt).
		Set("verified = ?", verified).
		Set("updated = ?", at).
		Where("id = ?", id)

	if clearToken {
		q = q.Set("verification_token = NULL")
	}

	return affected(q.Exec(ctx))
}

func (a *accounts) UpdateLastLogin(ctx context.Context, id int64, at int64) error {
	_, err := a.db.NewUpdate().
		Model((*Account)(nil)).
		Set("lastlogin = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	return storeError(err, "could not update last login")
}

func (a *accounts) UpdateData(ctx context.Context, ident Identifier, data string, at int64) (int64, error) {
	column, value := ident.column()
	return affected(a.db.NewUpdate().
		Model((*Account)(nil)).
		Set("data = ?", data).
		Set("updated = ?", at).
		Where("? = ?", bun.Ident(column), value).
		Exec(ctx))
}

func (a *accounts) Delete(ctx context.Context, id int64) (int64, error) {
	return affected(a.db.NewDelete().
		Model((*Account)(nil)).
		Where("id = ?", id).
		Exec(ctx))
}

func (a *accounts) scanOne(ctx context.Context, q *bun.SelectQuery, message, textCode string) (*Account, error) {
	record := &Account{}
	err := q.Model(record).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundError(message, textCode)
		}
		return nil, storeError(err, "could not load account")
	}
	return record, nil
}

func affected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, storeError(err, "could not update account")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeError(err, "could not read affected rows")
	}
	return n, nil
}
