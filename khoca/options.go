package khoca

import (
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Options bounds and tunes a calculation.
type Options struct {
	MaxCrossings      int    `toml:"max_crossings"`
	MaxGenerators     int64  `toml:"max_generators"`
	Workers           int    `toml:"workers"`
	AllowPresentation bool   `toml:"allow_presentation"`
	CatalogPath       string `toml:"catalog_path"`
	UseCatalog        bool   `toml:"use_catalog"`
	CatalogReadOnly   bool   `toml:"catalog_read_only"`
}

// DefaultOptions is used when no config file is given.
var DefaultOptions = Options{
	MaxCrossings:      24,
	MaxGenerators:     4_000_000,
	Workers:           0,
	AllowPresentation: true,
}

// LoadOptions reads a TOML file over DefaultOptions.
func LoadOptions(pathname string) (Options, error) {
	opts := DefaultOptions
	if _, err := toml.DecodeFile(pathname, &opts); err != nil {
		return opts, errors.Wrapf(err, "loading options %q", pathname)
	}
	opts.Normalize()
	return opts, nil
}

// DecodeOptions parses TOML text over DefaultOptions.
func DecodeOptions(text string) (Options, error) {
	opts := DefaultOptions
	if _, err := toml.Decode(text, &opts); err != nil {
		return opts, errors.Wrap(err, "decoding options")
	}
	opts.Normalize()
	return opts, nil
}

// Normalize replaces unset or out of range fields with working values.
func (opts *Options) Normalize() {
	if opts.MaxCrossings <= 0 {
		opts.MaxCrossings = DefaultOptions.MaxCrossings
	}
	if opts.MaxCrossings > 62 {
		opts.MaxCrossings = 62
	}
	if opts.MaxGenerators <= 0 {
		opts.MaxGenerators = DefaultOptions.MaxGenerators
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
}
