package tenant

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

var (
	defaultOnce sync.Once
	defaultCfg  Config
)

// DefaultID is the id of the built-in tenant.
const DefaultID = "school_default"

// ErrBadDocument is returned by ParseYAML for malformed tenant documents.
var ErrBadDocument = errors.New("invalid tenant document")

// Default returns the built-in tenant: NetVenture Academy with the full
// eight-strand curriculum.
func Default() Config {
	defaultOnce.Do(func() {
		cfg, err := ParseYAML(defaultCatalogYAML)
		if err != nil {
			panic(fmt.Sprintf("tenant: embedded default catalog: %v", err))
		}
		defaultCfg = cfg
	})
	return defaultCfg.Clone()
}

// ParseYAML decodes a tenant configuration and rejects unknown keys.
func ParseYAML(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrBadDocument, err)
	}
	if cfg.ID == "" {
		return Config{}, fmt.Errorf("%w: id is required", ErrBadDocument)
	}
	return cfg, nil
}

// MarshalYAML encodes cfg in the same layout ParseYAML reads.
func MarshalYAML(cfg Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
