package database

import (
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcalm/launchpad_server/config"
)

func TestOpen_SQLite(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "test.db"),
	}

	db, err := Open(cfg)
	require.NoError(t, err)
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	for _, table := range []string{"cv_submissions", "analysis_jobs", "profiles", "events"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(&config.DatabaseConfig{Driver: "postgres"})
	assert.Error(t, err)
}

func TestNewRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	host, portStr, _ := strings.Cut(mr.Addr(), ":")
	port, _ := strconv.Atoi(portStr)

	client, err := NewRedis(&config.RedisConfig{Host: host, Port: port})
	require.NoError(t, err)
	defer client.Close()

	mr.Close()
	_, err = NewRedis(&config.RedisConfig{Host: host, Port: port})
	assert.Error(t, err)
}
