package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: "host=localhost user=payout dbname=payout"
auth:
  withdrawSecret: "hmac-secret"
  jwtSecret: "jwt-secret"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 300, cfg.Auth.TimestampSkewSeconds)
	assert.Equal(t, uint64(1000), cfg.Indexer.BackfillBlocks)
	assert.Equal(t, time.Hour, cfg.Indexer.StaleAfter())
	assert.Equal(t, 10*time.Second, cfg.Indexer.ProbeTimeout())
	assert.Equal(t, 30*time.Second, cfg.Indexer.ReceiptWait())
	assert.Equal(t, 500*time.Millisecond, cfg.Indexer.ReceiptPoll())
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_DB_DSN", "host=db user=payout")
	t.Setenv("TEST_WITHDRAW_SECRET", "from-env")

	path := writeConfig(t, `
database:
  dsn: "${TEST_DB_DSN}"
auth:
  withdrawSecret: "${TEST_WITHDRAW_SECRET}"
  jwtSecret: "jwt-secret"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "host=db user=payout", cfg.Database.DSN)
	assert.Equal(t, "from-env", cfg.Auth.WithdrawSecret)
}

func TestLoadRejectsMissingSecrets(t *testing.T) {
	cases := map[string]string{
		"no dsn": `
auth:
  withdrawSecret: "a"
  jwtSecret: "b"
`,
		"no withdraw secret": `
database:
  dsn: "host=localhost"
auth:
  jwtSecret: "b"
`,
		"no jwt secret": `
database:
  dsn: "host=localhost"
auth:
  withdrawSecret: "a"
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			require.Error(t, err)
		})
	}
}

func TestLoadSeeds(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: "host=localhost"
auth:
  withdrawSecret: "a"
  jwtSecret: "b"
seeds:
  endpoints:
    - network: "ethereum"
      url: "http://node"
      priority: 1
      isDefault: true
  assets:
    - currency: "PEPE"
      network: "ethereum"
      contractAddress: "0x1111111111111111111111111111111111111111"
      decimals: 6
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Seeds.Endpoints, 1)
	assert.Equal(t, "http://node", cfg.Seeds.Endpoints[0].URL)
	require.Len(t, cfg.Seeds.Assets, 1)
	assert.Equal(t, int32(6), cfg.Seeds.Assets[0].Decimals)
}
