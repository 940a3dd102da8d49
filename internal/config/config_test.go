package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_WithDefaults(t *testing.T) {
	// Clear any existing env vars that might interfere
	envVars := []string{
		"APP_NAME", "APP_ENVIRONMENT", "APP_DEBUG",
		"SERVER_HOST", "SERVER_PORT",
		"DATABASE_HOST", "DATABASE_PORT", "DATABASE_USER", "DATABASE_PASSWORD", "DATABASE_DBNAME",
		"REDIS_HOST", "REDIS_PORT",
		"JWT_SECRET",
		"REALTIME_AUTH_TIMEOUT", "REALTIME_SEND_BUFFER_SIZE",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.App.Name != "booking-sync" {
		t.Errorf("App.Name = %q, want %q", cfg.App.Name, "booking-sync")
	}
	if cfg.App.Environment != "development" {
		t.Errorf("App.Environment = %q, want %q", cfg.App.Environment, "development")
	}
	if cfg.Server.Port != 8085 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8085)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 5432)
	}
	if cfg.Redis.Port != 6379 {
		t.Errorf("Redis.Port = %d, want %d", cfg.Redis.Port, 6379)
	}
	if cfg.Realtime.AuthTimeout != 10*time.Second {
		t.Errorf("Realtime.AuthTimeout = %v, want %v", cfg.Realtime.AuthTimeout, 10*time.Second)
	}
	if cfg.Realtime.SendBufferSize != 64 {
		t.Errorf("Realtime.SendBufferSize = %d, want %d", cfg.Realtime.SendBufferSize, 64)
	}
}

func TestLoad_WithEnvOverride(t *testing.T) {
	os.Setenv("APP_NAME", "test-app")
	os.Setenv("SERVER_PORT", "9090")
	os.Setenv("DATABASE_HOST", "clubs-db.example.com")
	os.Setenv("REALTIME_SEND_BUFFER_SIZE", "128")
	defer func() {
		os.Unsetenv("APP_NAME")
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("DATABASE_HOST")
		os.Unsetenv("REALTIME_SEND_BUFFER_SIZE")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.App.Name != "test-app" {
		t.Errorf("App.Name = %q, want %q", cfg.App.Name, "test-app")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9090)
	}
	if cfg.Database.Host != "clubs-db.example.com" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "clubs-db.example.com")
	}
	if cfg.Realtime.SendBufferSize != 128 {
		t.Errorf("Realtime.SendBufferSize = %d, want %d", cfg.Realtime.SendBufferSize, 128)
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	if dsn := cfg.DSN(); dsn != expected {
		t.Errorf("DSN() = %q, want %q", dsn, expected)
	}
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{
		Host: "redis.example.com",
		Port: 6380,
	}

	expected := "redis.example.com:6380"
	if addr := cfg.Addr(); addr != expected {
		t.Errorf("Addr() = %q, want %q", addr, expected)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				App:      AppConfig{Name: "test", Environment: "development"},
				Server:   ServerConfig{Port: 8085},
				JWT:      JWTConfig{Secret: "secret"},
				Realtime: RealtimeConfig{SendBufferSize: 64},
			},
			wantErr: false,
		},
		{
			name: "missing secret outside development",
			cfg: Config{
				App:      AppConfig{Name: "test", Environment: "production"},
				Server:   ServerConfig{Port: 8085},
				Realtime: RealtimeConfig{SendBufferSize: 64},
			},
			wantErr: true,
		},
		{
			name: "missing secret allowed in development",
			cfg: Config{
				App:      AppConfig{Name: "test", Environment: "development"},
				Server:   ServerConfig{Port: 8085},
				Realtime: RealtimeConfig{SendBufferSize: 64},
			},
			wantErr: false,
		},
		{
			name: "invalid port",
			cfg: Config{
				App:      AppConfig{Name: "test", Environment: "development"},
				Server:   ServerConfig{Port: 0},
				Realtime: RealtimeConfig{SendBufferSize: 64},
			},
			wantErr: true,
		},
		{
			name: "invalid send buffer size",
			cfg: Config{
				App:      AppConfig{Name: "test", Environment: "development"},
				Server:   ServerConfig{Port: 8085},
				Realtime: RealtimeConfig{SendBufferSize: 0},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
