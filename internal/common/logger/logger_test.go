// Package logger 日志模块单元测试
package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/dumeirei/hotel-pms-backend/internal/common/config"
)

func TestInit_ConsoleFormat(t *testing.T) {
	err := Init(&config.LoggerConfig{
		Level:  "debug",
		Format: "console",
		Output: "stdout",
		Caller: true,
	})
	assert.NoError(t, err)
	assert.NotNil(t, GetLogger())
}

func TestInit_FileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "pms.log")

	err := Init(&config.LoggerConfig{
		Level:      "info",
		Format:     "json",
		Output:     "file",
		FilePath:   logFile,
		MaxSize:    1,
		MaxBackups: 1,
		MaxAge:     1,
	})
	require.NoError(t, err)

	Info("reservation created", ReservationID(42), Actor("reception"), RoomNumber("101"))
	_ = Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.Contains(content, `"reservation_id":42`))
	assert.True(t, strings.Contains(content, `"actor":"reception"`))
	assert.True(t, strings.Contains(content, `"room_number":"101"`))
}

func TestGetLogLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"unknown": zapcore.InfoLevel,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, getLogLevel(in))
		})
	}
}

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, "invoice_id", InvoiceID(7).Key)
	assert.Equal(t, int64(7), InvoiceID(7).Integer)
	assert.Equal(t, "user_id", UserID(3).Key)
	assert.Equal(t, "request_id", RequestID("abc").Key)
}
