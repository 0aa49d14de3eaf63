package file

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/notesync/internal/core/domain"
)

// Configuration file names searched in the default directory, in order.
const (
	TOMLFileName = "config.toml"
	YAMLFileName = "config.yaml"
)

// DefaultDir returns ~/.notesync.
func DefaultDir() (string, error) {
	return ExpandHome(domain.DefaultDataDir)
}

// ResolvePath returns path unchanged when set. Otherwise it returns the first
// of config.toml and config.yaml that exists in the default directory.
func ResolvePath(path string) (string, error) {
	if path != "" {
		return ExpandHome(path)
	}

	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	for _, name := range []string{TOMLFileName, YAMLFileName, "config.yml"} {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no %s or %s in %s", domain.ErrConfiguration, TOMLFileName, YAMLFileName, dir)
}

// Load reads the configuration at path, substitutes environment variables,
// applies defaults and validates the result.
func Load(path string) (*domain.Config, error) {
	resolved, err := ResolvePath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrConfiguration, resolved, err)
	}

	cfg, err := Parse(data, filepath.Ext(resolved))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", resolved, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes configuration data. ext selects the format: ".yaml" and
// ".yml" are YAML, anything else is TOML. Defaults are applied and the data
// directory has ~ expanded; the result is not validated.
func Parse(data []byte, ext string) (*domain.Config, error) {
	expanded := []byte(ExpandEnv(string(data)))

	var cfg domain.Config
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(expanded))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: parse yaml: %w", domain.ErrConfiguration, err)
		}
	default:
		dec := toml.NewDecoder(bytes.NewReader(expanded))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("%w: parse toml: %w", domain.ErrConfiguration, err)
		}
	}

	cfg.ApplyDefaults()

	dataDir, err := ExpandHome(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	cfg.DataDir = dataDir
	return &cfg, nil
}

// ExpandEnv replaces ${VAR} and $VAR with environment values.
// References to unset variables are left as written.
func ExpandEnv(s string) string {
	return os.Expand(s, func(name string) string {
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return "${" + name + "}"
	})
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
