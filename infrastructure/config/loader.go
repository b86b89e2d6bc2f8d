// Package config loads portal configuration files and wires a service from them.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/orderflow/domain/config"
)

// Format represents a configuration file format.
type Format string

const (
	// FormatYAML is the YAML format.
	FormatYAML Format = "yaml"
	// FormatJSON is the JSON format.
	FormatJSON Format = "json"
)

var decoders = map[Format]func([]byte, any) error{
	FormatYAML: yaml.Unmarshal,
	FormatJSON: json.Unmarshal,
}

// FormatOf infers the format of a configuration file from its extension.
func FormatOf(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", config.ErrUnsupportedFormat, ext)
	}
}

// Loader reads a portal configuration over the in-memory defaults. Sections
// the document leaves out keep their default values.
type Loader struct {
	// ExpandEnv enables ${VAR} expansion before decoding.
	ExpandEnv bool
	// StrictEnv fails on references to unset variables.
	StrictEnv bool
	// Validate runs the domain validator and the file checks.
	Validate bool
}

// NewLoader creates a loader that expands variables and validates.
func NewLoader() *Loader {
	return &Loader{ExpandEnv: true, Validate: true}
}

// LoaderOption configures the loader.
type LoaderOption func(*Loader)

// WithEnvExpansion enables or disables environment variable expansion.
func WithEnvExpansion(enabled bool) LoaderOption {
	return func(l *Loader) { l.ExpandEnv = enabled }
}

// WithStrictEnv enables strict environment variable checking.
func WithStrictEnv(enabled bool) LoaderOption {
	return func(l *Loader) { l.StrictEnv = enabled }
}

// WithValidation enables or disables configuration validation.
func WithValidation(enabled bool) LoaderOption {
	return func(l *Loader) { l.Validate = enabled }
}

// NewLoaderWithOptions creates a loader with the specified options.
func NewLoaderWithOptions(opts ...LoaderOption) *Loader {
	l := NewLoader()
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFile loads a configuration file. Relative data paths in the file
// (sqlite database, document and journal directories, templates) resolve
// against the file's directory, so a deployment can ship them side by side.
func (l *Loader) LoadFile(path string) (*config.PortalConfig, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to access config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", config.ErrInvalidFormat, path)
	}
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := l.decode(data, format)
	if err != nil {
		return nil, err
	}
	resolvePaths(cfg, filepath.Dir(path))
	if err := l.check(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load loads configuration from a reader. Relative paths are left as they
// are and resolve against the working directory.
func (l *Loader) Load(r io.Reader, format Format) (*config.PortalConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return l.LoadBytes(data, format)
}

// LoadString loads configuration from a string.
func (l *Loader) LoadString(content string, format Format) (*config.PortalConfig, error) {
	return l.LoadBytes([]byte(content), format)
}

// LoadBytes loads configuration from bytes.
func (l *Loader) LoadBytes(data []byte, format Format) (*config.PortalConfig, error) {
	cfg, err := l.decode(data, format)
	if err != nil {
		return nil, err
	}
	if err := l.check(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) decode(data []byte, format Format) (*config.PortalConfig, error) {
	decode, ok := decoders[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", config.ErrUnsupportedFormat, format)
	}

	text := string(data)
	if l.ExpandEnv {
		var err error
		if text, err = (&envExpander{strict: l.StrictEnv}).Expand(text); err != nil {
			return nil, err
		}
	}

	cfg := config.Default()
	if err := decode([]byte(text), &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidFormat, err)
	}
	cfg.Compliance.EnhancedDocumentTypes = normalizeDocumentTypes(cfg.Compliance.EnhancedDocumentTypes)
	return &cfg, nil
}

func (l *Loader) check(cfg *config.PortalConfig) error {
	if !l.Validate {
		return nil
	}
	errs := config.NewValidator().Validate(cfg)
	errs = append(errs, checkFiles(cfg)...)
	if errs.HasErrors() {
		return fmt.Errorf("%w: %v", config.ErrValidationFailed, errs)
	}
	return nil
}

// normalizeDocumentTypes trims and lowercases enhanced document types and
// drops blanks and duplicates. Uploads are matched on the normalized type.
func normalizeDocumentTypes(types []string) []string {
	if types == nil {
		return nil
	}
	out := make([]string, 0, len(types))
	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// resolvePaths anchors relative data paths at dir.
func resolvePaths(cfg *config.PortalConfig, dir string) {
	resolve := func(p *string) {
		if *p == "" || filepath.IsAbs(*p) {
			return
		}
		*p = filepath.Join(dir, *p)
	}

	if sqlitePath := cfg.Storage.SQLite.Path; sqlitePath != ":memory:" && !strings.HasPrefix(sqlitePath, "file:") {
		resolve(&cfg.Storage.SQLite.Path)
	}
	resolve(&cfg.Documents.Dir)
	resolve(&cfg.Audit.Dir)
	resolve(&cfg.Notification.TemplatesPath)
}

// checkFiles reports referenced files that cannot be used. Directories
// that backends create on first use are not checked.
func checkFiles(cfg *config.PortalConfig) config.ValidationErrors {
	var errs config.ValidationErrors

	n := cfg.Notification
	if n.Enabled && n.TemplatesPath != "" {
		info, err := os.Stat(n.TemplatesPath)
		switch {
		case err != nil:
			errs = append(errs, config.ValidationError{
				Path:    "notification.templates_path",
				Message: fmt.Sprintf("templates file is not readable: %v", err),
			})
		case info.IsDir():
			errs = append(errs, config.ValidationError{
				Path:    "notification.templates_path",
				Message: fmt.Sprintf("%s is a directory", n.TemplatesPath),
			})
		}
	}
	if cfg.Documents.Backend == "filesystem" && cfg.Documents.Dir != "" {
		if info, err := os.Stat(cfg.Documents.Dir); err == nil && !info.IsDir() {
			errs = append(errs, config.ValidationError{
				Path:    "documents.dir",
				Message: fmt.Sprintf("%s is not a directory", cfg.Documents.Dir),
			})
		}
	}
	return errs
}
