package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv 清除变量，测试结束后由 t.Setenv 恢复
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	unsetEnv(t, "PORT", "DB_DRIVER", "MAX_UPLOAD_SIZE")
	t.Setenv("CLIENT_URL", "http://a.test, http://b.test,,")
	t.Setenv("UPLOAD_TIMEOUT", "15s")
	t.Setenv("MINIO_USE_SSL", "true")

	cfg := FromEnv()

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, DriverMongo, cfg.DBDriver)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.ClientURLs)
	assert.Equal(t, 15*time.Second, cfg.UploadTimeout)
	assert.True(t, cfg.MinioUseSSL)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadSize)
}

func TestFromEnvIgnoresMalformedNumbers(t *testing.T) {
	unsetEnv(t, "REDIS_DB", "TEMP_MAX_AGE")
	t.Setenv("REDIS_DB", "abc")
	t.Setenv("TEMP_MAX_AGE", "soon")

	cfg := FromEnv()

	assert.Equal(t, 0, cfg.RedisDB)
	assert.Equal(t, 30*time.Minute, cfg.TempMaxAge)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := FromEnv()
	cfg.Port = "not-a-port"
	cfg.DBDriver = "sqlite"
	cfg.JWTSecret = ""
	cfg.ClerkJWTKey = ""
	cfg.ChatBus = "kafka"

	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "PORT")
	assert.Contains(t, msg, "DB_DRIVER")
	assert.Contains(t, msg, "AUTH_JWT_SECRET")
	assert.Contains(t, msg, "CHAT_BUS")
}

func TestValidateAcceptsMinimalConfig(t *testing.T) {
	unsetEnv(t, "PORT", "DB_DRIVER", "CHAT_BUS", "IMAGE_MAX_WIDTH", "IMAGE_MAX_HEIGHT", "MAX_UPLOAD_SIZE", "UPLOAD_TIMEOUT", "TRUSTED_PROXIES")
	cfg := FromEnv()
	cfg.JWTSecret = "secret"

	assert.NoError(t, cfg.Validate())
}

func TestIsProduction(t *testing.T) {
	unsetEnv(t, "APP_ENV")
	t.Setenv("NODE_ENV", "production")
	assert.True(t, FromEnv().IsProduction())

	t.Setenv("APP_ENV", "staging")
	assert.False(t, FromEnv().IsProduction())
}

func TestTrustedNetworks(t *testing.T) {
	cfg := &Config{TrustedProxies: []string{"10.0.0.0/8", "127.0.0.1", "::1"}}
	nets, err := cfg.TrustedNetworks()
	require.NoError(t, err)
	require.Len(t, nets, 3)
	assert.Equal(t, "10.0.0.0/8", nets[0].String())
	assert.Equal(t, "127.0.0.1/32", nets[1].String())
	assert.Equal(t, "::1/128", nets[2].String())

	cfg.TrustedProxies = []string{"proxy.local"}
	_, err = cfg.TrustedNetworks()
	assert.ErrorContains(t, err, "TRUSTED_PROXIES")
}
