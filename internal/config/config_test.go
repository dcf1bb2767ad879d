package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "default configuration",
			envVars: map[string]string{
				"ENVIRONMENT": "development",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Len(t, cfg.Providers, 5)
				assert.True(t, cfg.Events.Enabled)
				assert.Equal(t, 2, cfg.Events.RetentionDays)
			},
		},
		{
			name: "database url overrides host fields",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://user:pass@db:5432/gateway",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgres://user:pass@db:5432/gateway", cfg.Database.DSN())
			},
		},
		{
			name: "provider priority reorders the default list",
			envVars: map[string]string{
				"PROVIDER_PRIORITY": "gemini,cerebras",
			},
			check: func(t *testing.T, cfg *Config) {
				byID := map[string]int{}
				for _, p := range cfg.Providers {
					byID[p.ID] = p.Priority
				}
				assert.Less(t, byID["gemini"], byID["cerebras"])
			},
		},
		{
			name: "events disabled",
			envVars: map[string]string{
				"EVENTS_ENABLED": "false",
				"RETENTION_DAYS": "7",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.Events.Enabled)
				assert.Equal(t, 7, cfg.Events.RetentionDays)
			},
		},
		{
			name: "invalid retention days",
			envVars: map[string]string{
				"RETENTION_DAYS": "0",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("missing database host", func(t *testing.T) {
		cfg := &Config{}
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "database configuration required")
	})

	t.Run("missing providers", func(t *testing.T) {
		cfg := &Config{Database: DatabaseConfig{Host: "localhost"}}
		err := cfg.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "at least one provider")
	})
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		environment string
		want        bool
	}{
		{"production", true},
		{"prod", true},
		{"development", false},
		{"staging", false},
	}
	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.want, cfg.IsProduction())
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		Database: "testdb",
		SSLMode:  "disable",
	}
	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	assert.Equal(t, expected, cfg.DSN())
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{Host: "0.0.0.0", Port: 8080}
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestGetEnvAsInt(t *testing.T) {
	os.Clearenv()
	os.Setenv("TEST_INT", "42")
	assert.Equal(t, 42, getEnvAsInt("TEST_INT", 10))
	assert.Equal(t, 10, getEnvAsInt("MISSING_INT", 10))
}

func TestGetEnvAsBool(t *testing.T) {
	os.Clearenv()
	os.Setenv("TEST_BOOL", "false")
	assert.Equal(t, false, getEnvAsBool("TEST_BOOL", true))
	assert.Equal(t, true, getEnvAsBool("MISSING_BOOL", true))
}

func TestGetEnvAsDuration(t *testing.T) {
	os.Clearenv()
	os.Setenv("TEST_DURATION", "45s")
	assert.Equal(t, 45*time.Second, getEnvAsDuration("TEST_DURATION", 10*time.Second))
	assert.Equal(t, 10*time.Second, getEnvAsDuration("MISSING_DURATION", 10*time.Second))
}

func TestSeedAPIKey(t *testing.T) {
	os.Clearenv()
	os.Setenv("CEREBRAS_API_KEY", "sk-test")
	assert.Equal(t, "sk-test", SeedAPIKey("cerebras"))
	assert.Equal(t, "", SeedAPIKey("cohere"))
}
