package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, ":8082", cfg.HTTPAddr)
	assert.Equal(t, "pos-core", cfg.ServiceName)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092 ,")

	cfg := Load()
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
}
