// Package config 配置管理单元测试
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithDefaultValues(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "hotel-pms-backend", cfg.Server.Name)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, "hotel.events", cfg.Events.Exchange)
	assert.False(t, cfg.Events.Enabled)
}

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, 300, cfg.Business.ReportCacheTTL)
	assert.Equal(t, "5 0 * * *", cfg.Scheduler.ReportWarmupSpec)
	assert.Equal(t, 10, cfg.Crypto.BcryptCost)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "admin", cfg.Bootstrap.AdminUsername)
	assert.Empty(t, cfg.Bootstrap.AdminPassword)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name   string
		config DatabaseConfig
		want   string
	}{
		{
			name: "postgres",
			config: DatabaseConfig{
				Driver:   "postgres",
				Host:     "localhost",
				Port:     5432,
				User:     "postgres",
				Password: "secret",
				Name:     "hotel",
				SSLMode:  "disable",
				Timezone: "UTC",
			},
			want: "host=localhost port=5432 user=postgres password=secret dbname=hotel sslmode=disable TimeZone=UTC",
		},
		{
			name: "mysql",
			config: DatabaseConfig{
				Driver:   "mysql",
				Host:     "db",
				Port:     3306,
				User:     "root",
				Password: "pw",
				Name:     "hotel",
			},
			want: "root:pw@tcp(db:3306)/hotel?charset=utf8mb4&parseTime=True&loc=UTC",
		},
		{
			name:   "sqlite 文件",
			config: DatabaseConfig{Driver: "sqlite", Path: "/tmp/pms.db"},
			want:   "/tmp/pms.db",
		},
		{
			name:   "sqlite 内存",
			config: DatabaseConfig{Driver: "sqlite"},
			want:   "file::memory:?cache=shared",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.config.DSN())
		})
	}
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", cfg.Addr())
}

func TestDurations(t *testing.T) {
	jwtCfg := JWTConfig{AccessTokenExpire: 12}
	assert.Equal(t, 12*time.Hour, jwtCfg.AccessTokenDuration())

	biz := BusinessConfig{ReportCacheTTL: 90}
	assert.Equal(t, 90*time.Second, biz.ReportCacheDuration())
}

func TestConfig_Mode(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Mode: "debug"}}
	assert.True(t, cfg.IsDebug())
	assert.False(t, cfg.IsRelease())

	cfg.Server.Mode = "release"
	assert.True(t, cfg.IsRelease())

	cfg.Server.Mode = "production"
	assert.True(t, cfg.IsRelease())
	assert.False(t, cfg.IsDebug())
}
