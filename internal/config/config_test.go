package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		wantErr     bool
		errorString string
	}{
		{
			name: "valid sqlite backend config",
			config: Config{
				Port:         "8081",
				DataBackend:  "sqlite",
				SQLiteDBPath: "./test.db",
				CacheSize:    64,
				CacheTTL:     30 * time.Second,
			},
			wantErr: false,
		},
		{
			name: "valid memory backend config",
			config: Config{
				Port:        "8081",
				DataBackend: "memory",
				CacheSize:   64,
				CacheTTL:    30 * time.Second,
			},
			wantErr: false,
		},
		{
			name: "invalid port - non-numeric",
			config: Config{
				Port:         "abc",
				DataBackend:  "sqlite",
				SQLiteDBPath: "./test.db",
				CacheSize:    64,
				CacheTTL:     30 * time.Second,
			},
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name: "invalid port - out of range low",
			config: Config{
				Port:         "0",
				DataBackend:  "sqlite",
				SQLiteDBPath: "./test.db",
				CacheSize:    64,
				CacheTTL:     30 * time.Second,
			},
			wantErr:     true,
			errorString: "invalid port 0: must be between 1 and 65535",
		},
		{
			name: "invalid port - out of range high",
			config: Config{
				Port:         "70000",
				DataBackend:  "sqlite",
				SQLiteDBPath: "./test.db",
				CacheSize:    64,
				CacheTTL:     30 * time.Second,
			},
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name: "invalid data backend",
			config: Config{
				Port:        "8080",
				DataBackend: "invalid",
				CacheSize:   64,
				CacheTTL:    30 * time.Second,
			},
			wantErr:     true,
			errorString: "invalid data backend 'invalid': must be one of [memory sqlite]",
		},
		{
			name: "sqlite backend missing database path",
			config: Config{
				Port:         "8080",
				DataBackend:  "sqlite",
				SQLiteDBPath: "",
				CacheSize:    64,
				CacheTTL:     30 * time.Second,
			},
			wantErr:     true,
			errorString: "SQLite database path cannot be empty when using sqlite backend",
		},
		{
			name: "invalid cache size - too small",
			config: Config{
				Port:         "8080",
				DataBackend:  "sqlite",
				SQLiteDBPath: "./test.db",
				CacheSize:    0,
				CacheTTL:     30 * time.Second,
			},
			wantErr:     true,
			errorString: "invalid cache size 0: must be at least 1",
		},
		{
			name: "invalid cache size - too large",
			config: Config{
				Port:         "8080",
				DataBackend:  "sqlite",
				SQLiteDBPath: "./test.db",
				CacheSize:    20000,
				CacheTTL:     30 * time.Second,
			},
			wantErr:     true,
			errorString: "invalid cache size 20000: must be at most 10000",
		},
		{
			name: "invalid cache TTL - too short",
			config: Config{
				Port:         "8080",
				DataBackend:  "sqlite",
				SQLiteDBPath: "./test.db",
				CacheSize:    64,
				CacheTTL:     500 * time.Millisecond,
			},
			wantErr:     true,
			errorString: "invalid cache TTL 500ms: must be at least 1 second",
		},
		{
			name: "invalid cache TTL - too long",
			config: Config{
				Port:         "8080",
				DataBackend:  "sqlite",
				SQLiteDBPath: "./test.db",
				CacheSize:    64,
				CacheTTL:     25 * time.Hour,
			},
			wantErr:     true,
			errorString: "invalid cache TTL 25h0m0s: must be at most 24 hours",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Config.Validate() error = nil, wantErr %v", tt.wantErr)
					return
				}
				if tt.errorString != "" && !strings.Contains(err.Error(), tt.errorString) {
					t.Errorf("Config.Validate() error = %v, want error containing %v", err.Error(), tt.errorString)
				}
			} else {
				if err != nil {
					t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
			}
		})
	}
}

func TestLoad(t *testing.T) {
	// Save original env vars
	originalVars := map[string]string{
		"PORT":           os.Getenv("PORT"),
		"DATA_BACKEND":   os.Getenv("DATA_BACKEND"),
		"SQLITE_DB_PATH": os.Getenv("SQLITE_DB_PATH"),
		"CACHE_SIZE":     os.Getenv("CACHE_SIZE"),
		"CACHE_TTL":      os.Getenv("CACHE_TTL"),
	}

	// Clean environment
	for key := range originalVars {
		os.Unsetenv(key)
	}

	// Restore env vars at end of test
	defer func() {
		for key, value := range originalVars {
			if value != "" {
				os.Setenv(key, value)
			} else {
				os.Unsetenv(key)
			}
		}
	}()

	t.Run("default values", func(t *testing.T) {
		cfg := Load()

		if cfg.Port != "8081" {
			t.Errorf("Load() Port = %v, want 8081", cfg.Port)
		}
		if cfg.DataBackend != "sqlite" {
			t.Errorf("Load() DataBackend = %v, want sqlite", cfg.DataBackend)
		}
		if cfg.SQLiteDBPath != "./data/bilancio.db" {
			t.Errorf("Load() SQLiteDBPath = %v, want ./data/bilancio.db", cfg.SQLiteDBPath)
		}
		if cfg.CacheSize != 64 {
			t.Errorf("Load() CacheSize = %v, want 64", cfg.CacheSize)
		}
		if cfg.CacheTTL != 30*time.Second {
			t.Errorf("Load() CacheTTL = %v, want 30s", cfg.CacheTTL)
		}
	})

	t.Run("environment variables", func(t *testing.T) {
		os.Setenv("PORT", "9090")
		os.Setenv("DATA_BACKEND", "memory")
		os.Setenv("SQLITE_DB_PATH", "/tmp/test.db")
		os.Setenv("CACHE_SIZE", "128")
		os.Setenv("CACHE_TTL", "1m")
		defer func() {
			os.Unsetenv("PORT")
			os.Unsetenv("DATA_BACKEND")
			os.Unsetenv("SQLITE_DB_PATH")
			os.Unsetenv("CACHE_SIZE")
			os.Unsetenv("CACHE_TTL")
		}()

		cfg := Load()

		if cfg.Port != "9090" {
			t.Errorf("Load() Port = %v, want 9090", cfg.Port)
		}
		if cfg.DataBackend != "memory" {
			t.Errorf("Load() DataBackend = %v, want memory", cfg.DataBackend)
		}
		if cfg.SQLiteDBPath != "/tmp/test.db" {
			t.Errorf("Load() SQLiteDBPath = %v, want /tmp/test.db", cfg.SQLiteDBPath)
		}
		if cfg.CacheSize != 128 {
			t.Errorf("Load() CacheSize = %v, want 128", cfg.CacheSize)
		}
		if cfg.CacheTTL != time.Minute {
			t.Errorf("Load() CacheTTL = %v, want 1m", cfg.CacheTTL)
		}
	})

	t.Run("invalid numeric values fall back to defaults", func(t *testing.T) {
		os.Setenv("CACHE_SIZE", "not-a-number")
		os.Setenv("CACHE_TTL", "not-a-duration")
		defer func() {
			os.Unsetenv("CACHE_SIZE")
			os.Unsetenv("CACHE_TTL")
		}()

		cfg := Load()

		if cfg.CacheSize != 64 {
			t.Errorf("Load() CacheSize = %v, want default 64", cfg.CacheSize)
		}
		if cfg.CacheTTL != 30*time.Second {
			t.Errorf("Load() CacheTTL = %v, want default 30s", cfg.CacheTTL)
		}
	})
}
