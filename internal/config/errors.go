// SPDX-License-Identifier: MIT

package config

import "errors"

// Strict file parsing failures, matchable with errors.Is.
var (
	ErrUnknownConfigField = errors.New("unknown config field")
	ErrMultipleDocuments  = errors.New("config file must hold exactly one YAML document")
)
