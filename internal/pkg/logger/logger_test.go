package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/your-org/storefront-backend/internal/config"
)

func TestNew(t *testing.T) {
	cfg := &config.Config{}
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"

	log := New(cfg)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
}

func TestNew_FallbackLevel(t *testing.T) {
	cfg := &config.Config{}
	cfg.Logging.Level = "loud"
	cfg.Logging.Format = "text"

	log := New(cfg)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}

func TestForApp(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Name = "Storefront"
	cfg.App.Environment = "test"

	entry := ForApp(New(cfg), cfg)
	assert.Equal(t, "Storefront", entry.Data["service"])
	assert.Equal(t, "test", entry.Data["env"])
}
