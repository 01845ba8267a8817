package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func envFrom(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(WithEnvLookup(noEnv))
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:8000", cfg.Addr())
	require.Equal(t, ProviderMock, cfg.LLMProvider)
	require.Equal(t, 3, cfg.RetryMaxAttempts)
	require.Equal(t, 4*time.Second, cfg.RetryInitialDelay)
	require.Equal(t, 25, cfg.MaxSteps)
	require.Equal(t, 60*time.Second, cfg.KnowledgeTTL)
}

func TestLoadFileThenEnvPrecedence(t *testing.T) {
	file := []byte("port: 9000\nllm_provider: openai\napi_key: file-key\nmax_steps: 10\n")
	cfg, err := Load(
		WithFile("nion.yaml"),
		WithFileReader(func(path string) ([]byte, error) {
			require.Equal(t, "nion.yaml", path)
			return file, nil
		}),
		WithEnvLookup(envFrom(map[string]string{
			"NION_PORT":    "9100",
			"NION_API_KEY": "env-key",
		})),
	)
	require.NoError(t, err)

	// Env wins over file, file wins over default.
	require.Equal(t, 9100, cfg.Port)
	require.Equal(t, "env-key", cfg.APIKey)
	require.Equal(t, 10, cfg.MaxSteps)
	require.Equal(t, ProviderOpenAI, cfg.LLMProvider)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(
		WithFile("absent.yaml"),
		WithFileReader(func(string) ([]byte, error) { return nil, os.ErrNotExist }),
		WithEnvLookup(noEnv),
	)
	require.NoError(t, err)
	require.Equal(t, 8000, cfg.Port)
}

func TestLoadDowngradesToMockWithoutAPIKey(t *testing.T) {
	cfg, err := Load(WithEnvLookup(envFrom(map[string]string{
		"NION_LLM_PROVIDER": "OpenAI",
	})))
	require.NoError(t, err)
	require.Equal(t, ProviderMock, cfg.LLMProvider)
}

func TestLoadKeepsProviderWithAPIKey(t *testing.T) {
	cfg, err := Load(WithEnvLookup(envFrom(map[string]string{
		"NION_LLM_PROVIDER": "openai",
		"NION_API_KEY":      "sk-test",
	})))
	require.NoError(t, err)
	require.Equal(t, ProviderOpenAI, cfg.LLMProvider)
}

func TestLoadRejectsMalformedEnvValues(t *testing.T) {
	_, err := Load(WithEnvLookup(envFrom(map[string]string{
		"NION_PORT": "not-a-number",
	})))
	require.Error(t, err)
}

func TestLoadParsesDurationsAndLists(t *testing.T) {
	cfg, err := Load(WithEnvLookup(envFrom(map[string]string{
		"NION_RETRY_INITIAL_DELAY": "250ms",
		"NION_KNOWLEDGE_TTL":       "2m",
		"NION_CORS_ORIGINS":        "http://a.example, http://b.example",
	})))
	require.NoError(t, err)
	require.Equal(t, 250*time.Millisecond, cfg.RetryInitialDelay)
	require.Equal(t, 2*time.Minute, cfg.KnowledgeTTL)
	require.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORSOrigins)
}
