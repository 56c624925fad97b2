package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "routes"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=routes sslmode=disable", cfg.DSN())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}
