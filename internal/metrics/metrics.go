package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Chain indexer
	// ============================================
	IndexerScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payout_indexer_scans_total",
			Help: "Total number of indexer scans per network and outcome",
		},
		[]string{"network", "outcome"},
	)

	IndexerEntriesDiscovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payout_indexer_entries_discovered_total",
			Help: "Ledger entries discovered by the indexer",
		},
		[]string{"network", "direction"},
	)

	IndexerCheckpointBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "payout_indexer_checkpoint_block",
			Help: "Last processed block per (network, contract)",
		},
		[]string{"network", "contract"},
	)

	// ============================================
	// Withdrawal state machine
	// ============================================
	WithdrawTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payout_withdraw_transitions_total",
			Help: "Withdrawal status transitions",
		},
		[]string{"status"},
	)

	WithdrawRefundsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payout_withdraw_refunds_total",
			Help: "Balance refunds issued for failed or cancelled withdrawals",
		},
	)

	SettlementDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "payout_settlement_duration_seconds",
			Help:    "On-chain settlement execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ============================================
	// Endpoint registry
	// ============================================
	EndpointProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payout_endpoint_probes_total",
			Help: "RPC endpoint liveness probes per network and outcome",
		},
		[]string{"network", "outcome"},
	)

	// ============================================
	// Fraud guard
	// ============================================
	FraudBansTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payout_fraud_bans_total",
			Help: "Accounts banned by the shared-IP fraud guard",
		},
	)
)
