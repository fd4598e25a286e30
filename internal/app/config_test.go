package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join("testdata")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)

	require.Equal(t, "s3", cfg.Storage.Driver)
	require.Equal(t, "minio.internal:9000", cfg.Storage.S3.Endpoint)
	require.Equal(t, "blobs", cfg.Storage.S3.Bucket)
	require.False(t, cfg.Storage.S3.UseSSL)
	require.Equal(t, 8, cfg.Storage.Upload.MaxConcurrency)
	require.EqualValues(t, 10485760, cfg.Storage.Upload.MaxFileBytes)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "cloudconnect", cfg.Auth.JWT.Issuer)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 7*24*time.Hour, cfg.Auth.Session.RefreshTTL)
	require.Equal(t, 64, cfg.Auth.Session.RefreshLength)
	require.Equal(t, 3, cfg.Auth.Local.LockoutThreshold)
	require.Equal(t, 5*time.Minute, cfg.Auth.Local.LockoutDuration)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "info", cfg.Server.LogLevel)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "local", cfg.Storage.Driver)
	require.Equal(t, "/files", cfg.Storage.Local.BaseURL)
	require.Equal(t, 4, cfg.Storage.Upload.MaxConcurrency)
	require.EqualValues(t, 64<<20, cfg.Storage.Upload.MaxFileBytes)
	require.Equal(t, 15*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 30*24*time.Hour, cfg.Auth.Session.RefreshTTL)
}

func TestAuthConfigConversions(t *testing.T) {
	cfg := AuthConfig{
		JWT:     JWTSettings{Secret: "s", Issuer: "i", TTL: time.Minute},
		Session: SessionSettings{RefreshTTL: time.Hour, RefreshLength: 32},
		Local:   LocalAuthSettings{LockoutThreshold: 7, LockoutDuration: time.Minute},
	}

	jwtCfg := cfg.JWTServiceConfig()
	require.Equal(t, "s", jwtCfg.Secret)
	require.Equal(t, "i", jwtCfg.Issuer)
	require.Equal(t, time.Minute, jwtCfg.AccessTokenTTL)

	sessionCfg := cfg.SessionServiceConfig()
	require.Equal(t, time.Hour, sessionCfg.RefreshTokenTTL)
	require.Equal(t, 32, sessionCfg.RefreshLength)

	localCfg := cfg.LocalProviderConfig()
	require.Equal(t, 7, localCfg.LockoutThreshold)
	require.Equal(t, time.Minute, localCfg.LockoutDuration)
}
