package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5432, Name: "streetlight", User: "app", Password: "p@ss word"}

	u, err := url.Parse(cfg.DSN())
	require.NoError(t, err)

	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db:5432", u.Host)
	assert.Equal(t, "/streetlight", u.Path)
	assert.Equal(t, "app", u.User.Username())
	password, _ := u.User.Password()
	assert.Equal(t, "p@ss word", password)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}

func TestMigrationFiles(t *testing.T) {
	files, err := MigrationFiles(migrationsFS)
	require.NoError(t, err)

	require.NotEmpty(t, files)
	assert.Equal(t, "001_init.sql", files[0])
}

func TestInitMigrationCreatesTables(t *testing.T) {
	content, err := migrationsFS.ReadFile("migrations/001_init.sql")
	require.NoError(t, err)

	for _, table := range []string{"users", "streetlights", "sensor_readings", "decisions", "actuation_events"} {
		assert.Contains(t, string(content), "CREATE TABLE IF NOT EXISTS "+table+" ")
	}
}
