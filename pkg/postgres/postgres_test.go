package postgres

import (
	"testing"

	"signal-alert-engine/config"

	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want gormlogger.LogLevel
	}{
		{"Silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"Info", gormlogger.Info},
		{"Warn", gormlogger.Warn},
		{"", gormlogger.Warn},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, gormLogLevel(tt.in))
		})
	}
}

func TestDatabaseConnectionStrings(t *testing.T) {
	db := config.Database{
		Host: "db", Port: 5432, User: "app", Password: "p@ss word",
		DBName: "signal_alert", SSLMode: "disable", TimeZone: "UTC",
	}

	assert.Equal(t, "host=db user=app password=p@ss word dbname=signal_alert port=5432 sslmode=disable TimeZone=UTC", db.DSN())
	assert.Equal(t, "postgres://app:p%40ss%20word@db:5432/signal_alert?sslmode=disable", db.URL())
}
