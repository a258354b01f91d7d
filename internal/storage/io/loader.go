// Package io loads stack configuration files.
package io

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/slok/stackrun/internal/conventions"
	"github.com/slok/stackrun/internal/model"
	"github.com/slok/stackrun/internal/utils/env"
)

var (
	// ErrConfigNotFound is returned when no configuration file resolves.
	ErrConfigNotFound = errors.New("config file not found")
	// ErrConfigEmpty is returned when the configuration document has no content.
	ErrConfigEmpty = errors.New("config is empty")
)

// Format is a configuration file format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// FormatFromPath returns the format of a config file based on its extension.
// Files without a known extension are sniffed when decoded.
func FormatFromPath(p string) Format {
	switch strings.ToLower(path.Ext(p)) {
	case ".json":
		return FormatJSON
	case ".toml":
		return FormatTOML
	case ".yaml", ".yml":
		return FormatYAML
	}
	return ""
}

// ConfigRepository loads stack configuration from YAML, JSON or TOML files.
type ConfigRepository struct {
	fs     fs.FS
	lookup env.Lookup
}

// NewConfigRepository creates a new config repository. The lookup is used to
// substitute `${VAR}` references in the configuration string values.
func NewConfigRepository(filesystem fs.FS, lookup env.Lookup) *ConfigRepository {
	if lookup == nil {
		lookup = env.OSLookup
	}
	return &ConfigRepository{fs: filesystem, lookup: lookup}
}

// Discover returns the first existing file of the path as is or with a config extension appended.
func (r *ConfigRepository) Discover(p string) (string, error) {
	candidates := []string{p}
	for _, ext := range conventions.ConfigExtensions {
		candidates = append(candidates, p+ext)
	}

	for _, c := range candidates {
		st, err := fs.Stat(r.fs, c)
		if err != nil {
			continue
		}
		if st.IsDir() {
			continue
		}
		return c, nil
	}

	return "", fmt.Errorf("%q (tried %s): %w", p, strings.Join(candidates, ", "), ErrConfigNotFound)
}

// GetConfig discovers and loads a stack configuration, it returns the resolved file path.
func (r *ConfigRepository) GetConfig(ctx context.Context, p string) (model.StackConfig, string, error) {
	file, err := r.Discover(p)
	if err != nil {
		return model.StackConfig{}, "", err
	}

	data, err := fs.ReadFile(r.fs, file)
	if err != nil {
		return model.StackConfig{}, "", fmt.Errorf("reading config file: %w", err)
	}

	if ctx.Err() != nil {
		return model.StackConfig{}, "", ctx.Err()
	}

	cfg, err := r.DecodeConfig(data, FormatFromPath(file))
	if err != nil {
		return model.StackConfig{}, "", fmt.Errorf("loading %s: %w", file, err)
	}

	return cfg, file, nil
}

// DecodeConfig decodes a configuration document.
func (r *ConfigRepository) DecodeConfig(data []byte, format Format) (model.StackConfig, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return model.StackConfig{}, ErrConfigEmpty
	}

	if format == "" {
		format = sniffFormat(data)
	}

	var tree any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &tree); err != nil {
			return model.StackConfig{}, fmt.Errorf("parsing JSON: %w", err)
		}
	case FormatTOML:
		var m map[string]any
		if err := toml.Unmarshal(data, &m); err != nil {
			return model.StackConfig{}, fmt.Errorf("parsing TOML: %w", err)
		}
		tree = m
	default:
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return model.StackConfig{}, fmt.Errorf("parsing YAML: %w", err)
		}
	}

	if tree == nil {
		return model.StackConfig{}, ErrConfigEmpty
	}
	root, ok := tree.(map[string]any)
	if !ok {
		return model.StackConfig{}, fmt.Errorf("config root must be a mapping, got %T: %w", tree, model.ErrNotValid)
	}
	if len(root) == 0 {
		return model.StackConfig{}, ErrConfigEmpty
	}

	expanded := r.expand(root)

	raw, err := json.Marshal(expanded)
	if err != nil {
		return model.StackConfig{}, fmt.Errorf("could not normalize config: %w", err)
	}

	var cfg model.StackConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return model.StackConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// GetDotenv loads a dotenv file, a missing file returns no variables.
func (r *ConfigRepository) GetDotenv(ctx context.Context, p string) (map[string]string, error) {
	data, err := fs.ReadFile(r.fs, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading dotenv file: %w", err)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	vars, err := env.ParseDotenv(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing dotenv %s: %w", p, err)
	}

	return vars, nil
}

func (r *ConfigRepository) expand(v any) any {
	switch tv := v.(type) {
	case string:
		return env.Expand(tv, r.lookup)
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, vv := range tv {
			out[k] = r.expand(vv)
		}
		return out
	case []any:
		out := make([]any, len(tv))
		for i, vv := range tv {
			out[i] = r.expand(vv)
		}
		return out
	default:
		return v
	}
}

func sniffFormat(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatYAML
}
