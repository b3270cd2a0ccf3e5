package services

import (
	"context"
	"errors"
	"testing"

	"payout-backend/internal/apperrors"
	"payout-backend/internal/models"
	"payout-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointRegistryResolvesByPriority(t *testing.T) {
	gdb := newTestDB(t)
	seedEndpoint(t, gdb, "ethereum", "http://secondary", 2)
	seedEndpoint(t, gdb, "ethereum", "http://primary", 1)

	dialed := []string{}
	dial := func(url string) (ChainClient, error) {
		dialed = append(dialed, url)
		return newFakeChainClient(), nil
	}

	registry := NewEndpointRegistry(repository.NewEndpointRepository(gdb), dial, testIndexerConfig(), newTestLogger())
	client, endpoint, err := registry.Resolve(context.Background(), "ethereum")
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, []string{"http://primary"}, dialed)
	assert.Equal(t, "http://primary", endpoint.URL)
}

func TestEndpointRegistryFailsOverAndPersistsHealth(t *testing.T) {
	gdb := newTestDB(t)
	primary := seedEndpoint(t, gdb, "ethereum", "http://primary", 1)
	secondary := seedEndpoint(t, gdb, "ethereum", "http://secondary", 2)

	dial := func(url string) (ChainClient, error) {
		if url == "http://primary" {
			return nil, errors.New("connection refused")
		}
		return newFakeChainClient(), nil
	}

	registry := NewEndpointRegistry(repository.NewEndpointRepository(gdb), dial, testIndexerConfig(), newTestLogger())
	client, endpoint, err := registry.Resolve(context.Background(), "ethereum")
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, "http://secondary", endpoint.URL)

	var stored models.ChainEndpoint
	require.NoError(t, gdb.First(&stored, primary.ID).Error)
	assert.Equal(t, models.EndpointStatusUnhealthy, stored.Status)
	assert.NotNil(t, stored.LastCheckedAt)

	stored = models.ChainEndpoint{}
	require.NoError(t, gdb.First(&stored, secondary.ID).Error)
	assert.Equal(t, models.EndpointStatusHealthy, stored.Status)
}

func TestEndpointRegistryProbeFailureClosesClient(t *testing.T) {
	gdb := newTestDB(t)
	seedEndpoint(t, gdb, "ethereum", "http://broken", 1)

	broken := newFakeChainClient()
	broken.blockErr = errors.New("probe timeout")
	dial := func(url string) (ChainClient, error) { return broken, nil }

	registry := NewEndpointRegistry(repository.NewEndpointRepository(gdb), dial, testIndexerConfig(), newTestLogger())
	_, _, err := registry.Resolve(context.Background(), "ethereum")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnavailable))
	assert.True(t, broken.closed)
}

func TestEndpointRegistryNoCandidates(t *testing.T) {
	gdb := newTestDB(t)

	registry := NewEndpointRegistry(repository.NewEndpointRepository(gdb), nil, testIndexerConfig(), newTestLogger())
	_, _, err := registry.Resolve(context.Background(), "ethereum")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnavailable))
}

func TestEndpointRegistryReprobesUnhealthy(t *testing.T) {
	gdb := newTestDB(t)
	endpoint := seedEndpoint(t, gdb, "ethereum", "http://flaky", 1)

	failing := true
	dial := func(url string) (ChainClient, error) {
		if failing {
			return nil, errors.New("connection refused")
		}
		return newFakeChainClient(), nil
	}

	registry := NewEndpointRegistry(repository.NewEndpointRepository(gdb), dial, testIndexerConfig(), newTestLogger())
	_, _, err := registry.Resolve(context.Background(), "ethereum")
	require.Error(t, err)

	// No backoff window: the next resolve tries the endpoint again.
	failing = false
	client, resolved, err := registry.Resolve(context.Background(), "ethereum")
	require.NoError(t, err)
	defer client.Close()
	assert.Equal(t, endpoint.ID, resolved.ID)

	var stored models.ChainEndpoint
	require.NoError(t, gdb.First(&stored, endpoint.ID).Error)
	assert.Equal(t, models.EndpointStatusHealthy, stored.Status)
}
