package redis_client

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectAddress(t *testing.T) {
	server := miniredis.RunT(t)

	require.NoError(t, ConnectAddress(server.Addr(), "", 0))
	defer func() { Client = nil }()

	assert.True(t, Enabled())
	require.NoError(t, Client.Set(context.Background(), "key", "value", 0).Err())

	value, err := server.Get("key")
	require.NoError(t, err)
	assert.Equal(t, "value", value)
}

func TestConnectSkippedWithoutAddress(t *testing.T) {
	t.Setenv("STOPDENSITY_REDIS_ADDRESS", "")

	require.NoError(t, Connect(false))
	assert.False(t, Enabled())
}
