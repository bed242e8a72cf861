package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				// Verify some key fields are populated
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "zaptalk_db", cfg.Database.Database)
				assert.Equal(t, "jobs_exchange", cfg.RabbitMQ.Exchange.Name)
				assert.Equal(t, "job-api-service", cfg.App.Name)
				assert.True(t, cfg.Workers.Import.Enabled)
				assert.Equal(t, 2, cfg.Workers.Import.Concurrency)
				assert.Equal(t, 10, cfg.Workers.Report.PrefetchCount)
				assert.Equal(t, 30*time.Second, cfg.Workers.ShutdownTimeout)
				assert.Equal(t, "/tmp/zaptalk-exports", cfg.Export.Dir)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "zaptalk_db",
		},
		RabbitMQ: RabbitMQConfig{
			Host: "localhost",
			Port: 5672,
			Exchange: ExchangeConfig{
				Name: "jobs_exchange",
			},
		},
		Workers: WorkersConfig{
			Import:          PoolConfig{Enabled: true, Concurrency: 2, PrefetchCount: 4},
			Report:          PoolConfig{Enabled: true, Concurrency: 5, PrefetchCount: 10},
			Campaign:        PoolConfig{Enabled: true, Concurrency: 10, PrefetchCount: 20},
			ShutdownTimeout: 30 * time.Second,
		},
		Export: ExportConfig{Dir: "/tmp/exports"},
	}
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:      "invalid server port - too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "invalid server port - too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "empty database host",
			mutate:    func(c *Config) { c.Database.Host = "" },
			wantErr:   true,
			errString: "database host is required",
		},
		{
			name:      "empty database name",
			mutate:    func(c *Config) { c.Database.Database = "" },
			wantErr:   true,
			errString: "database name is required",
		},
		{
			name:      "empty rabbitmq host",
			mutate:    func(c *Config) { c.RabbitMQ.Host = "" },
			wantErr:   true,
			errString: "rabbitmq host is required",
		},
		{
			name:      "empty exchange name",
			mutate:    func(c *Config) { c.RabbitMQ.Exchange.Name = "" },
			wantErr:   true,
			errString: "rabbitmq exchange name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateWorkerConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "zero concurrency means domain default",
			mutate:  func(c *Config) { c.Workers.Import.Concurrency = 0 },
			wantErr: false,
		},
		{
			name:      "negative concurrency",
			mutate:    func(c *Config) { c.Workers.Report.Concurrency = -1 },
			wantErr:   true,
			errString: "worker report concurrency must not be negative",
		},
		{
			name:      "negative prefetch",
			mutate:    func(c *Config) { c.Workers.Campaign.PrefetchCount = -2 },
			wantErr:   true,
			errString: "worker campaign prefetch_count must not be negative",
		},
		{
			name:      "missing shutdown timeout",
			mutate:    func(c *Config) { c.Workers.ShutdownTimeout = 0 },
			wantErr:   true,
			errString: "workers shutdown_timeout must be greater than 0",
		},
		{
			name:      "missing export dir",
			mutate:    func(c *Config) { c.Export.Dir = "" },
			wantErr:   true,
			errString: "export dir is required",
		},
		{
			name:      "empty database host",
			mutate:    func(c *Config) { c.Database.Host = "" },
			wantErr:   true,
			errString: "database host is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateWorkerConfig()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoad_ValidateIntegration(t *testing.T) {
	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		require.NoError(t, cfg.ValidateAPIConfig())
		require.NoError(t, cfg.ValidateWorkerConfig())
	})

	t.Run("load config with invalid port", func(t *testing.T) {
		cfg, err := Load("testdata/invalid_port.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})

	t.Run("load config with missing database", func(t *testing.T) {
		cfg, err := Load("testdata/missing_database.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database name is required")
	})
}

func TestPortConstants(t *testing.T) {
	t.Run("port constants are correct", func(t *testing.T) {
		assert.Equal(t, 1, MinPort)
		assert.Equal(t, 65535, MaxPort)
	})

	t.Run("invalid port range", func(t *testing.T) {
		invalidPorts := []int{0, -1, 65536, 70000}
		for _, port := range invalidPorts {
			valid := port >= MinPort && port <= MaxPort
			assert.False(t, valid, "port %d should be invalid", port)
		}
	})
}
