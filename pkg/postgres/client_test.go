package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/sparse-encoder/pkg/config"
)

func TestNewUnreachable(t *testing.T) {
	cfg := config.PostgresConfig{
		Host:            "127.0.0.1",
		Port:            1,
		Database:        "documents",
		User:            "encoder",
		SSLMode:         "disable",
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}
	client, err := New(cfg)
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "pinging postgres")
}

func TestDSN(t *testing.T) {
	cfg := config.PostgresConfig{Host: "db", Port: 5432, Database: "docs", User: "u", Password: "p", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=docs sslmode=disable", cfg.DSN())
}
