// Package api provides the public API for the orderflow library.
// This file provides configuration-related exports.
package api

import (
	domainconfig "github.com/felixgeelhaar/orderflow/domain/config"
	infraconfig "github.com/felixgeelhaar/orderflow/infrastructure/config"
)

// Re-export domain configuration types.
type (
	// PortalConfig represents the complete portal configuration.
	PortalConfig = domainconfig.PortalConfig
	// ComplianceConfig tunes the compliance gates.
	ComplianceConfig = domainconfig.ComplianceConfig
	// StorageConfig selects the record store.
	StorageConfig = domainconfig.StorageConfig
	// DocumentsConfig selects the document presence backend.
	DocumentsConfig = domainconfig.DocumentsConfig
	// AuditConfig selects the transition journal.
	AuditConfig = domainconfig.AuditConfig
	// NotificationConfig contains notification settings.
	NotificationConfig = domainconfig.NotificationConfig
	// ResilienceConfig contains resilience settings.
	ResilienceConfig = domainconfig.ResilienceConfig
	// HTTPConfig configures the API server.
	HTTPConfig = domainconfig.HTTPConfig
	// ConfigDuration is a time.Duration that supports JSON/YAML string representation.
	ConfigDuration = domainconfig.Duration

	// ValidationError represents a configuration validation error.
	ValidationError = domainconfig.ValidationError
	// ValidationErrors is a collection of validation errors.
	ValidationErrors = domainconfig.ValidationErrors
)

// Re-export infrastructure configuration types.
type (
	// ConfigLoader loads portal configuration from files.
	ConfigLoader = infraconfig.Loader
	// ConfigBuilder wires a service from configuration.
	ConfigBuilder = infraconfig.Builder
	// ConfigBuildResult contains the built components from configuration.
	ConfigBuildResult = infraconfig.BuildResult
	// ConfigLoaderOption configures the loader.
	ConfigLoaderOption = infraconfig.LoaderOption
	// ConfigBuilderOption configures the builder.
	ConfigBuilderOption = infraconfig.BuilderOption
	// JSONSchema represents a JSON Schema document.
	JSONSchema = infraconfig.JSONSchema
)

// Configuration format constants.
const (
	// ConfigFormatYAML is the YAML format.
	ConfigFormatYAML = infraconfig.FormatYAML
	// ConfigFormatJSON is the JSON format.
	ConfigFormatJSON = infraconfig.FormatJSON
)

// Configuration errors.
var (
	// ErrConfigNotFound indicates the configuration file was not found.
	ErrConfigNotFound = domainconfig.ErrConfigNotFound
	// ErrInvalidFormat indicates the configuration format is invalid.
	ErrInvalidFormat = domainconfig.ErrInvalidFormat
	// ErrUnsupportedFormat indicates the file format is not supported.
	ErrUnsupportedFormat = domainconfig.ErrUnsupportedFormat
	// ErrValidationFailed indicates configuration validation failed.
	ErrValidationFailed = domainconfig.ErrValidationFailed
	// ErrMissingEnvVar indicates a required environment variable is not set.
	ErrMissingEnvVar = domainconfig.ErrMissingEnvVar
	// ErrBuildFailed indicates wiring the service from config failed.
	ErrBuildFailed = domainconfig.ErrBuildFailed
)

// NewConfigLoader creates a new configuration loader with default settings.
func NewConfigLoader() *ConfigLoader {
	return infraconfig.NewLoader()
}

// NewConfigLoaderWithOptions creates a loader with the specified options.
func NewConfigLoaderWithOptions(opts ...ConfigLoaderOption) *ConfigLoader {
	return infraconfig.NewLoaderWithOptions(opts...)
}

// ConfigWithEnvExpansion enables or disables environment variable expansion.
func ConfigWithEnvExpansion(enabled bool) ConfigLoaderOption {
	return infraconfig.WithEnvExpansion(enabled)
}

// ConfigWithStrictEnv enables strict environment variable checking.
func ConfigWithStrictEnv(enabled bool) ConfigLoaderOption {
	return infraconfig.WithStrictEnv(enabled)
}

// ConfigWithValidation enables or disables configuration validation.
func ConfigWithValidation(enabled bool) ConfigLoaderOption {
	return infraconfig.WithValidation(enabled)
}

// NewConfigBuilder creates a new configuration builder.
func NewConfigBuilder(config *PortalConfig, opts ...ConfigBuilderOption) *ConfigBuilder {
	return infraconfig.NewBuilder(config, opts...)
}

// NewConfigValidator creates a new configuration validator.
func NewConfigValidator() *domainconfig.Validator {
	return domainconfig.NewValidator()
}

// DefaultPortalConfig returns a configuration that runs entirely in memory.
func DefaultPortalConfig() *PortalConfig {
	cfg := domainconfig.Default()
	return &cfg
}

// ConfigSchemaJSON returns the configuration JSON Schema as a JSON string.
func ConfigSchemaJSON() (string, error) {
	return infraconfig.SchemaJSON()
}

// ExpandEnv expands environment variables in a string.
// Supported patterns: ${VAR}, ${VAR:-default}, ${VAR:?error}
func ExpandEnv(input string) string {
	return infraconfig.ExpandEnv(input)
}
