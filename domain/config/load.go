package config

import (
	"errors"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Load parses a YAML configuration document, layered over Default().
// Fields absent from the document keep their defaults.
func Load(r io.Reader) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Join(ErrInvalidFormat, err)
	}

	if errs := cfg.Validate(); errs.HasErrors() {
		return Config{}, errors.Join(ErrValidationFailed, errs)
	}
	return cfg, nil
}

// LoadFile reads and parses a YAML configuration file.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, errors.Join(ErrConfigNotFound, err)
		}
		return Config{}, err
	}
	defer f.Close()

	return Load(f)
}
