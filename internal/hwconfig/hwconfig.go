// Package hwconfig reads, applies and writes hardware configuration files.
// A configuration lists the devices to load with their parent hub, the
// properties to set before and after initialization, and an optional
// delay.
package hwconfig

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	_ "embed"

	"github.com/micro-manager/micro-manager-sub007/internal/errorcodes"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema/hardware-v1.json
var hardwareSchemaJSON string

const schemaName = "hardware-v1.json"

// Config is a hardware configuration.
type Config struct {
	Devices []Device `yaml:"devices"`
}

// Device describes one device to load.
type Device struct {
	Label      string     `yaml:"label"`
	Module     string     `yaml:"module"`
	Device     string     `yaml:"device"`
	Parent     string     `yaml:"parent,omitempty"`
	PreInit    []Property `yaml:"pre_init,omitempty"`
	Properties []Property `yaml:"properties,omitempty"`
	DelayMs    *float64   `yaml:"delay_ms,omitempty"`
}

// Property is a property assignment. Assignments are applied in order.
type Property struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

var hardwareSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaName, strings.NewReader(hardwareSchemaJSON)); err != nil {
		panic(fmt.Sprintf("hwconfig: adding schema: %v", err))
	}

	return compiler.MustCompile(schemaName)
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hardware configuration: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Parse decodes a YAML configuration and validates it against the
// embedded schema. Labels must be unique.
func Parse(data []byte) (*Config, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errorcodes.Wrap(errorcodes.ErrInvalidConfig, err, "invalid YAML")
	}
	if err := validate(doc); err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errorcodes.Wrap(errorcodes.ErrInvalidConfig, err, "decoding")
	}

	seen := make(map[string]bool, len(cfg.Devices))
	for _, d := range cfg.Devices {
		if seen[d.Label] {
			return nil, errorcodes.New(errorcodes.ErrInvalidConfig, "label %q used twice", d.Label)
		}
		seen[d.Label] = true
	}

	return &cfg, nil
}

// validate checks a decoded YAML document against the schema. The
// document goes through JSON so the validator sees JSON value types.
func validate(doc any) error {
	if doc == nil {
		return errorcodes.New(errorcodes.ErrInvalidConfig, "empty document")
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return errorcodes.Wrap(errorcodes.ErrInvalidConfig, err, "converting to JSON")
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return errorcodes.Wrap(errorcodes.ErrInvalidConfig, err, "converting to JSON")
	}

	if err := hardwareSchema.Validate(v); err != nil {
		return errorcodes.Wrap(errorcodes.ErrInvalidConfig, err, "schema validation failed")
	}

	return nil
}

// Marshal encodes cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding hardware configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding hardware configuration: %w", err)
	}

	return buf.Bytes(), nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
