package utils

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func resetTokensCache() {
	tokens.Lock()
	tokens.cache = nil
	tokens.Unlock()
}

func TestTokenCacheLookup(t *testing.T) {
	defer resetTokensCache()

	assert.False(t, TokensReady())

	LoadTokensFromMap(map[string]int{"belt-free": 5, "belt-pro": 60})

	assert.True(t, TokensReady())
	assert.True(t, ValidateToken("belt-free"))
	assert.Equal(t, 5, GetRateLimit("belt-free"))
	assert.True(t, ValidateToken("belt-pro"))
	assert.Equal(t, 60, GetRateLimit("belt-pro"))
	assert.False(t, ValidateToken("revoked"))
	assert.Equal(t, 0, GetRateLimit("revoked"))
}

func TestTokenReloadReplacesCache(t *testing.T) {
	defer resetTokensCache()

	LoadTokensFromMap(map[string]int{"belt-free": 5, "belt-pro": 60})
	assert.Equal(t, 60, GetRateLimit("belt-pro"))

	// A reload drops keys that vanished from the table and picks up quota
	// changes for the ones that stayed.
	LoadTokensFromMap(map[string]int{"belt-free": 10, "belt-team": 120})

	assert.True(t, ValidateToken("belt-free"))
	assert.Equal(t, 10, GetRateLimit("belt-free"))
	assert.False(t, ValidateToken("belt-pro"))
	assert.True(t, ValidateToken("belt-team"))
	assert.Equal(t, 120, GetRateLimit("belt-team"))
}

func TestPostgresDSN_BuildsURL(t *testing.T) {
	dsn, err := postgresDSN(PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "docbelt",
		User:     "belt",
		Password: "p@ss word",
		SSLMode:  "disable",
	})
	assert.NoError(t, err)

	u, err := url.Parse(dsn)
	assert.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "localhost:5432", u.Host)
	assert.Equal(t, "/docbelt", u.Path)
	assert.Equal(t, "belt", u.User.Username())
	pw, ok := u.User.Password()
	assert.True(t, ok)
	assert.Equal(t, "p@ss word", pw)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
}

func TestPostgresDSN_Passthrough(t *testing.T) {
	raw := "postgres://belt:p@localhost:5432/docbelt?sslmode=disable"
	dsn, err := postgresDSN(PostgresConfig{Host: raw})
	assert.NoError(t, err)
	assert.Equal(t, raw, dsn)
}

func TestPostgresDSN_IPv6Host(t *testing.T) {
	dsn, err := postgresDSN(PostgresConfig{
		Host:     "::1",
		Database: "docbelt",
		User:     "belt",
	})
	assert.NoError(t, err)

	u, err := url.Parse(dsn)
	assert.NoError(t, err)
	assert.Equal(t, "[::1]:5432", u.Host)
}
