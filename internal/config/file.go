// SPDX-License-Identifier: MIT

package config

import (
	"fmt"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

const redacted = "***"

// Redacted returns a copy with credentials masked.
func (c AppConfig) Redacted() AppConfig {
	out := c
	if out.Store.Redis.Password != "" {
		out.Store.Redis.Password = redacted
	}
	if out.Store.DynamoDB.SecretAccessKey != "" {
		out.Store.DynamoDB.SecretAccessKey = redacted
	}
	return out
}

// Marshal renders cfg as YAML that Load accepts back.
func Marshal(cfg AppConfig) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// WriteFile atomically replaces path with cfg as YAML.
func WriteFile(path string, cfg AppConfig) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
