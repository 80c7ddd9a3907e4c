package internal

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config groups the environment variables shared by the customer and admin
// binaries. The bearer token itself comes from the auth collaborator and is
// only passed through.
type Config struct {
	APIBaseURL     string        `env:"API_BASE_URL,required=true" validate:"url"`
	WebsocketURL   string        `env:"WS_URL,required=true" validate:"uri"`
	BearerToken    string        `env:"BEARER_TOKEN,required=true" validate:"required"`
	BadgerFilepath string        `env:"BADGER_FILEPATH,required=true" validate:"required"`
	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT,default=10s"`
	// ReconcileWindow bounds the content+sender duplicate heuristic for
	// servers that do not echo client keys.
	ReconcileWindow time.Duration `env:"RECONCILE_WINDOW,default=5s"`
	BannedWords     []string      `env:"BANNED_WORDS"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO"`
}

// Validate applies the struct-level validation rules after the raw
// environment has been unmarshalled.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
