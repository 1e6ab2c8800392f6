// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// The SPOTIFLAC_WS_URL environment variable, when set, overrides the
// endpoint address from the file.
package config
