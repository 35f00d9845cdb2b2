package config

import (
	"io/ioutil"
	"os"

	"github.com/Velocidex/yaml/v2"
	"github.com/go-errors/errors"
)

const (
	// Environment overrides applied after any file based config.
	EnvConfigPath = "ARGUS_CONFIG"
	EnvWSUrl      = "ARGUS_WS_URL"
	EnvAPIUrl     = "ARGUS_API_URL"
	EnvWriteback  = "ARGUS_WRITEBACK"
)

type loaderFunction struct {
	name        string
	loader_func func(self *Loader) (*Config, error)
}

type configMutator struct {
	name                string
	config_mutator_func func(config_obj *Config) error
}

// Loads the configuration from various sources in priority
// order. The first loader that returns a config wins, then all
// mutators are applied in order.
type Loader struct {
	verbose bool

	loaders         []loaderFunction
	config_mutators []configMutator
}

func (self *Loader) Copy() *Loader {
	return &Loader{
		verbose:         self.verbose,
		loaders:         append([]loaderFunction{}, self.loaders...),
		config_mutators: append([]configMutator{}, self.config_mutators...),
	}
}

func (self *Loader) WithVerbose(verbose bool) *Loader {
	res := self.Copy()
	res.verbose = verbose
	return res
}

func (self *Loader) WithFileLoader(filename string) *Loader {
	if filename == "" {
		return self
	}

	res := self.Copy()
	res.loaders = append(res.loaders, loaderFunction{
		name: "FileLoader",
		loader_func: func(self *Loader) (*Config, error) {
			return read_config_from_file(filename)
		},
	})
	return res
}

// Load the config from a file nominated by an environment variable.
func (self *Loader) WithEnvLoader(env_var string) *Loader {
	res := self.Copy()
	res.loaders = append(res.loaders, loaderFunction{
		name: "EnvLoader",
		loader_func: func(self *Loader) (*Config, error) {
			env_config := os.Getenv(env_var)
			if env_config == "" {
				return nil, errors.Errorf("Env var %v is not set", env_var)
			}
			return read_config_from_file(env_config)
		},
	})
	return res
}

func (self *Loader) WithLiteralLoader(serialized []byte) *Loader {
	res := self.Copy()
	res.loaders = append(res.loaders, loaderFunction{
		name: "LiteralLoader",
		loader_func: func(self *Loader) (*Config, error) {
			result := GetDefaultConfig()
			err := yaml.UnmarshalStrict(serialized, result)
			if err != nil {
				return nil, errors.Wrap(err, 0)
			}
			return result, nil
		},
	})
	return res
}

// Fall back on the built in defaults so the tool works with no
// config file at all.
func (self *Loader) WithDefaultLoader() *Loader {
	res := self.Copy()
	res.loaders = append(res.loaders, loaderFunction{
		name: "DefaultLoader",
		loader_func: func(self *Loader) (*Config, error) {
			return GetDefaultConfig(), nil
		},
	})
	return res
}

// Environment variables trump whatever the file said. This is how
// deployments point the console at a different frontend.
func (self *Loader) WithEnvOverrides() *Loader {
	res := self.Copy()
	res.config_mutators = append(res.config_mutators, configMutator{
		name: "EnvOverrides",
		config_mutator_func: func(config_obj *Config) error {
			if ws_url := os.Getenv(EnvWSUrl); ws_url != "" {
				config_obj.Client.WSUrl = ws_url
			}
			if api_url := os.Getenv(EnvAPIUrl); api_url != "" {
				config_obj.Client.APIUrl = api_url
			}
			if wb := os.Getenv(EnvWriteback); wb != "" {
				config_obj.Client.WritebackPath = wb
			}
			return nil
		},
	})
	return res
}

func (self *Loader) LoadAndValidate() (*Config, error) {
	for _, loader := range self.loaders {
		result, err := loader.loader_func(self)
		if err != nil {
			continue
		}

		for _, mutator := range self.config_mutators {
			err = mutator.config_mutator_func(result)
			if err != nil {
				return nil, err
			}
		}

		result.Verbose = result.Verbose || self.verbose
		return result, Validate(result)
	}
	return nil, errors.New("Unable to load config from any source")
}

func Validate(config_obj *Config) error {
	if config_obj.Client == nil {
		return errors.New("No Client config available")
	}

	client := config_obj.Client
	if client.WSUrl == "" || client.APIUrl == "" {
		return errors.New("Client.ws_url and Client.api_url must be set")
	}

	if client.ReconnectBaseMs <= 0 {
		client.ReconnectBaseMs = 3000
	}

	if client.ReconnectMaxAttempts < 1 {
		client.ReconnectMaxAttempts = 5
	}

	if client.SendRateHz <= 0 {
		client.SendRateHz = 10
	}

	if client.WorkflowHistorySize <= 0 {
		client.WorkflowHistorySize = 50
	}

	return nil
}

func read_config_from_file(filename string) (*Config, error) {
	result := GetDefaultConfig()

	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}

	err = yaml.UnmarshalStrict(data, result)
	if err != nil {
		return nil, errors.Wrap(err, 0)
	}
	return result, nil
}
