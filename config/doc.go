// Package config provides configuration loading and validation for mowkit
// deployments.
//
// It uses Viper to load a YAML file plus environment-variable overrides,
// with an optional .env file for development. The loaded tree declares
// breaker presets, named retry policies, degradation strategies and health
// monitor settings, so a full resilience profile ships as one file per
// mower model.
//
// Environment variables override file values using underscore-separated
// paths (e.g. MOWKIT_LOGGING_LEVEL).
package config
