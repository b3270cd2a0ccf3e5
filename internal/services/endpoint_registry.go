package services

import (
	"context"

	"payout-backend/internal/apperrors"
	"payout-backend/internal/config"
	"payout-backend/internal/metrics"
	"payout-backend/internal/models"
	"payout-backend/internal/repository"

	"github.com/sirupsen/logrus"
)

// EndpointRegistry resolves a working RPC client for a network. Candidates
// are tried in ascending priority order on every call; there is no backoff
// window, a previously unhealthy endpoint is re-probed next time around.
type EndpointRegistry struct {
	endpoints repository.EndpointRepository
	dial      DialFunc
	cfg       *config.IndexerConfig
	logger    *logrus.Logger
}

// NewEndpointRegistry creates a new EndpointRegistry instance
func NewEndpointRegistry(endpoints repository.EndpointRepository, dial DialFunc, cfg *config.IndexerConfig, logger *logrus.Logger) *EndpointRegistry {
	if dial == nil {
		dial = DefaultDial
	}
	return &EndpointRegistry{
		endpoints: endpoints,
		dial:      dial,
		cfg:       cfg,
		logger:    logger,
	}
}

// Resolve returns a connected client for the first candidate that answers a
// block-height probe within the configured timeout. The caller owns the
// client and must Close it. Health status and last-checked time are
// persisted for every probe outcome.
func (r *EndpointRegistry) Resolve(ctx context.Context, network string) (ChainClient, *models.ChainEndpoint, error) {
	candidates, err := r.endpoints.ListByNetwork(ctx, network)
	if err != nil {
		return nil, nil, err
	}
	if len(candidates) == 0 {
		return nil, nil, apperrors.Unavailablef("no endpoints configured for network %s", network)
	}

	for _, candidate := range candidates {
		client, err := r.probe(ctx, candidate)
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"network":  network,
				"endpoint": candidate.URL,
				"priority": candidate.Priority,
				"error":    err.Error(),
			}).Warn("endpoint probe failed")

			metrics.EndpointProbesTotal.WithLabelValues(network, "failure").Inc()
			if updateErr := r.endpoints.UpdateHealth(ctx, candidate.ID, models.EndpointStatusUnhealthy); updateErr != nil {
				r.logger.WithError(updateErr).Warn("failed to persist endpoint health")
			}
			continue
		}

		metrics.EndpointProbesTotal.WithLabelValues(network, "success").Inc()
		if updateErr := r.endpoints.UpdateHealth(ctx, candidate.ID, models.EndpointStatusHealthy); updateErr != nil {
			r.logger.WithError(updateErr).Warn("failed to persist endpoint health")
		}

		r.logger.WithFields(logrus.Fields{
			"network":  network,
			"endpoint": candidate.URL,
		}).Debug("resolved working endpoint")
		return client, candidate, nil
	}

	return nil, nil, apperrors.Unavailablef("no working endpoint for network %s", network)
}

func (r *EndpointRegistry) probe(ctx context.Context, endpoint *models.ChainEndpoint) (ChainClient, error) {
	client, err := r.dial(endpoint.URL)
	if err != nil {
		return nil, err
	}

	probeCtx, cancel := context.WithTimeout(ctx, r.cfg.ProbeTimeout())
	defer cancel()

	if _, err := client.BlockNumber(probeCtx); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
