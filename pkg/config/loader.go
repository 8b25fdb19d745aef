package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"

	"github.com/sultanmr/aws-grocery/pkg/validator"
)

// Load parses environment variables into cfg and then checks any
// `validate` tags on the struct.
//
//	type Config struct {
//	    Port   int    `env:"HTTP_PORT" envDefault:"8080" validate:"gte=1,lte=65535"`
//	    Bucket string `env:"S3_BUCKET_NAME" validate:"required_if=UseS3 true"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if err := validator.Validate(cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}
