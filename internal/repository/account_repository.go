package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/listing-platform/internal/model"
)

const accountColumns = `id, username, email, password_hash, first_name, last_name,
	is_staff, is_superuser, is_active, date_joined`

// AccountRepo stores accounts in the MySQL `accounts` table.
type AccountRepo struct{ DB *sqlx.DB }

func NewAccountRepo(db *sqlx.DB) *AccountRepo { return &AccountRepo{DB: db} }

// Create inserts the account and sets its ID.
func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	res, err := r.DB.NamedExecContext(ctx,
		`INSERT INTO accounts (username, email, password_hash, first_name, last_name,
			is_staff, is_superuser, is_active, date_joined)
		 VALUES (:username, :email, :password_hash, :first_name, :last_name,
			:is_staff, :is_superuser, :is_active, :date_joined)`, a)
	if err != nil {
		return mapDuplicate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

func (r *AccountRepo) GetByID(ctx context.Context, id int64) (model.Account, error) {
	return r.getOne(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id=? LIMIT 1", id)
}

func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (model.Account, error) {
	return r.getOne(ctx, "SELECT "+accountColumns+" FROM accounts WHERE username=? LIMIT 1", username)
}

// GetByEmail matches case-insensitively under the table's default collation.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	return r.getOne(ctx, "SELECT "+accountColumns+" FROM accounts WHERE email=? LIMIT 1", email)
}

func (r *AccountRepo) getOne(ctx context.Context, query string, arg any) (model.Account, error) {
	var a model.Account
	if err := r.DB.GetContext(ctx, &a, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, ErrNotFound
		}
		return model.Account{}, err
	}
	return a, nil
}

// UpdateProfile writes only the supplied columns.
func (r *AccountRepo) UpdateProfile(ctx context.Context, id int64, u model.ProfileUpdate) (model.Account, error) {
	var (
		sets []string
		args []any
	)
	if u.Email != nil {
		sets = append(sets, "email=?")
		args = append(args, *u.Email)
	}
	if u.FirstName != nil {
		sets = append(sets, "first_name=?")
		args = append(args, *u.FirstName)
	}
	if u.LastName != nil {
		sets = append(sets, "last_name=?")
		args = append(args, *u.LastName)
	}
	if len(sets) > 0 {
		args = append(args, id)
		if _, err := r.DB.ExecContext(ctx,
			"UPDATE accounts SET "+strings.Join(sets, ", ")+" WHERE id=?", args...); err != nil {
			return model.Account{}, mapDuplicate(err)
		}
	}
	return r.GetByID(ctx, id)
}

// mapDuplicate converts MySQL duplicate-key errors on the unique indexes
// into ErrUsernameTaken or ErrEmailTaken.
func mapDuplicate(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != 1062 {
		return err
	}
	switch {
	case strings.Contains(me.Message, "uq_accounts_username"):
		return ErrUsernameTaken
	case strings.Contains(me.Message, "uq_accounts_email"):
		return ErrEmailTaken
	}
	return err
}
