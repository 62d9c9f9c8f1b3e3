package repository

import (
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestMapDuplicate(t *testing.T) {
	user := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'bob' for key 'accounts.uq_accounts_username'"}
	email := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'b@x.io' for key 'accounts.uq_accounts_email'"}
	other := &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"}

	assert.ErrorIs(t, mapDuplicate(user), ErrUsernameTaken)
	assert.ErrorIs(t, mapDuplicate(email), ErrEmailTaken)
	assert.Same(t, other, mapDuplicate(other))

	plain := errors.New("connection reset")
	assert.Same(t, plain, mapDuplicate(plain))
}
