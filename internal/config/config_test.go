package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadListingsDefaults(t *testing.T) {
	t.Setenv("LISTINGS_STORAGE", "")
	t.Setenv("AUTH_SERVICE_URL", "")
	t.Setenv("AUTH_SERVICE_TIMEOUT", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, err := LoadListings()
	require.NoError(t, err)
	assert.Equal(t, StorageMongo, cfg.Storage)
	assert.Equal(t, "http://localhost:8001/api/auth", cfg.AuthServiceURL)
	assert.Equal(t, 5*time.Second, cfg.AuthTimeout)
	assert.Equal(t, "listingsAndReviews", cfg.MongoCollection)
	assert.Equal(t, DefaultCORSOrigins, cfg.CORSOrigins)
}

func TestLoadListingsOverrides(t *testing.T) {
	t.Setenv("LISTINGS_STORAGE", "memory")
	t.Setenv("AUTH_SERVICE_URL", "http://auth:9000/api/auth/")
	t.Setenv("AUTH_SERVICE_TIMEOUT", "750ms")
	t.Setenv("AUTH_SERVICE_RETRIES", "-3")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := LoadListings()
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, "http://auth:9000/api/auth", cfg.AuthServiceURL)
	assert.Equal(t, 750*time.Millisecond, cfg.AuthTimeout)
	assert.Equal(t, 0, cfg.AuthRetries)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoadListingsRejectsUnknownStorage(t *testing.T) {
	t.Setenv("LISTINGS_STORAGE", "cassandra")
	_, err := LoadListings()
	assert.Error(t, err)
}

func TestLoadAuthRequiresMySQLVars(t *testing.T) {
	t.Setenv("AUTH_STORAGE", "mysql")
	t.Setenv("DB_USER", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "")

	_, err := LoadAuth()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_USER")
	assert.Contains(t, err.Error(), "DB_NAME")
	assert.NotContains(t, err.Error(), "DB_HOST")
}

func TestLoadAuthMemory(t *testing.T) {
	t.Setenv("AUTH_STORAGE", "memory")
	t.Setenv("BCRYPT_COST", "4")
	cfg, err := LoadAuth()
	require.NoError(t, err)
	assert.Equal(t, "8001", cfg.Port)
	assert.Equal(t, 4, cfg.BcryptCost)
}

func TestLoadAuthRejectsBcryptCost(t *testing.T) {
	t.Setenv("AUTH_STORAGE", "memory")
	t.Setenv("BCRYPT_COST", "99")
	_, err := LoadAuth()
	assert.Error(t, err)
}

func TestEnvBool(t *testing.T) {
	t.Setenv("X_FLAG", "on")
	assert.True(t, envBool("X_FLAG", false))
	t.Setenv("X_FLAG", "maybe")
	assert.True(t, envBool("X_FLAG", true))
}

func TestLoadCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	cfg := LoadCacheConfig()
	assert.True(t, cfg.Methods["GET"])
	assert.True(t, cfg.Methods["HEAD"])
	assert.False(t, cfg.Methods["POST"])
}
