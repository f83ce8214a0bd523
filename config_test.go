package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		port:            8080,
		vocab:           "data/vocabulary.txt",
		remoteRateLimit: 30,
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validConfig().validate())

	cfg := validConfig()
	cfg.port = 0
	assert.Error(t, cfg.validate())

	cfg = validConfig()
	cfg.vocab = ""
	assert.Error(t, cfg.validate())

	cfg = validConfig()
	cfg.tlsCert = "cert.pem"
	assert.Error(t, cfg.validate(), "cert without key")
	cfg.tlsKey = "key.pem"
	assert.NoError(t, cfg.validate())

	cfg = validConfig()
	cfg.remoteRateLimit = 0
	assert.Error(t, cfg.validate())
}

func TestConfigScheme(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "http", validConfig().scheme())

	cfg := validConfig()
	cfg.tlsCert, cfg.tlsKey = "cert.pem", "key.pem"
	assert.Equal(t, "https", cfg.scheme())
}

func TestConfigFlagDefaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	cmd := newCmd(cfg)
	assert.NoError(t, cmd.ParseFlags(nil))

	assert.Equal(t, "0.0.0.0", cfg.bind)
	assert.Equal(t, 8080, cfg.port)
	assert.Equal(t, 30, cfg.remoteRateLimit)
	assert.False(t, cfg.remoteSemantics)
	assert.NotEmpty(t, cfg.vocab)
}
