package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezhealth/appointment-api/internal/config"
)

func TestOpenMemory(t *testing.T) {
	repos, err := Open(context.Background(), config.DatabaseConfig{Driver: "memory"})
	require.NoError(t, err)
	defer repos.Close()

	assert.NoError(t, repos.Ping(context.Background()))
	assert.NotNil(t, repos.Appointments)
	assert.NotNil(t, repos.Outbox)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite"})
	assert.ErrorContains(t, err, "unknown database driver")
}
