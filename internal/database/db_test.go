package database

import (
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/listing-platform/internal/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.MySQLConfig{User: "app", Pass: "s3cret", Host: "db", Port: "3306", Name: "auth"})

	parsed, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "app", parsed.User)
	assert.Equal(t, "s3cret", parsed.Passwd)
	assert.Equal(t, "db:3306", parsed.Addr)
	assert.Equal(t, "auth", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.True(t, strings.Contains(dsn, "charset=utf8mb4"))
}

func TestDSNWithoutPassword(t *testing.T) {
	dsn := DSN(config.MySQLConfig{User: "app", Host: "localhost", Port: "3307", Name: "auth"})
	assert.True(t, strings.HasPrefix(dsn, "app@tcp(localhost:3307)/auth"))
}
