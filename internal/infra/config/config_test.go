package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"MONGO_URI", "KAFKA_BROKERS", "GATEWAY_MODE", "CURRENCY", "REALTOR_SHARE", "PAYMENT_WINDOW"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.Memory())
	require.Empty(t, cfg.KafkaBrokers)
	require.Equal(t, "NGN", cfg.Currency)
	require.Equal(t, GatewaySandbox, cfg.GatewayMode)
	require.Equal(t, 30*time.Minute, cfg.PaymentWindow)
	require.Equal(t, 24*time.Hour, cfg.StayHold)
	require.Equal(t, 48*time.Hour, cfg.DepositHold)
	require.Equal(t, "0.9", cfg.RealtorShare.String())
	require.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
}

func TestLoadOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("CURRENCY", "usd")
	t.Setenv("REALTOR_SHARE", "0.85")
	t.Setenv("JOBS_ENABLED", "off")

	cfg, err := Load()
	require.NoError(t, err)
	require.False(t, cfg.Memory())
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "USD", cfg.Currency)
	require.Equal(t, "0.85", cfg.RealtorShare.String())
	require.False(t, cfg.JobsEnabled)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	chdir(t, t.TempDir())
	cases := map[string]string{
		"PAYMENT_WINDOW": "soon",
		"REALTOR_SHARE":  "1.5",
		"S3_USE_SSL":     "maybe",
		"GATEWAY_MODE":   "carrier-pigeon",
		"JOB_BATCH_SIZE": "lots",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestHTTPGatewayNeedsSecret(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("GATEWAY_MODE", GatewayHTTP)
	t.Setenv("GATEWAY_SECRET_KEY", "")
	_, err := Load()
	require.ErrorContains(t, err, "GATEWAY_SECRET_KEY")
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (stand-in for testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
