package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type File struct {
	FetchTimeout     time.Duration `yaml:"fetch_timeout"`
	DefaultScale     float32       `yaml:"default_scale"`
	ManifestEncoding string        `yaml:"manifest_encoding"`
	Verbose          bool          `yaml:"verbose"`
}

var (
	fetchTimeout = 30 * time.Second
	defaultScale = float32(1.0)
	verbose      = false
)

func GetFetchTimeout() time.Duration  { return fetchTimeout }
func SetFetchTimeout(d time.Duration) { fetchTimeout = d }

func GetDefaultScale() float32  { return defaultScale }
func SetDefaultScale(s float32) { defaultScale = s }

func IsVerbose() bool   { return verbose }
func SetVerbose(v bool) { verbose = v }

// Load applies a yaml config file on top of the defaults. Keys missing
// from the file keep their current values.
func Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "Cannot read config %q", path)
	}

	f := File{
		FetchTimeout: GetFetchTimeout(),
		DefaultScale: GetDefaultScale(),
		Verbose:      IsVerbose(),
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return errors.Wrapf(err, "Cannot parse config %q", path)
	}
	if f.FetchTimeout < 0 {
		return errors.Errorf("fetch_timeout must not be negative, got %v", f.FetchTimeout)
	}
	if err := SetEncoding(f.ManifestEncoding); err != nil {
		return err
	}

	SetFetchTimeout(f.FetchTimeout)
	SetDefaultScale(f.DefaultScale)
	SetVerbose(f.Verbose)
	return nil
}
