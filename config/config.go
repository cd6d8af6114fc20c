/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PRECISION     = 4
	DEFAULT_LOG_LEVEL     = "warn"
	DEFAULT_OUTPUT_FORMAT = "csv"
	MAX_PRECISION         = 16
)

// ConfigStore holds the active *Configuration.
var ConfigStore atomic.Value

// PolicyConfig holds the dispute policy switches.
type PolicyConfig struct {
	AllowRedispute     *bool `json:"allow_redispute" envconfig:"TXENGINE_POLICY_ALLOW_REDISPUTE"`
	DisputeWithdrawals bool  `json:"dispute_withdrawals" envconfig:"TXENGINE_POLICY_DISPUTE_WITHDRAWALS"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `json:"level" envconfig:"TXENGINE_LOG_LEVEL"`
	Format string `json:"format" envconfig:"TXENGINE_LOG_FORMAT"`
}

// OutputConfig selects the snapshot format.
type OutputConfig struct {
	Format string `json:"format" envconfig:"TXENGINE_OUTPUT_FORMAT"`
}

// Configuration is the full set of run settings. A nil Precision means the
// default; zero is a valid precision.
type Configuration struct {
	Precision *int32       `json:"precision" envconfig:"TXENGINE_PRECISION"`
	Policy    PolicyConfig `json:"policy"`
	Log       LogConfig    `json:"log"`
	Output    OutputConfig `json:"output"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", file, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		logrus.Debugf("config file %s not found, using defaults and environment", file)
	} else {
		return fmt.Errorf("reading %s: %w", file, err)
	}

	// a missing .env file is not an error
	_ = godotenv.Load()

	// override config from environment variables
	err = envconfig.Process("txengine", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return nil
}

// InitConfig loads configFile and the environment into ConfigStore.
func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

// Fetch returns the active configuration.
func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded. call config.InitConfig first")
	}
	return c, nil
}

// RedisputeAllowed reports whether a resolved transaction may be disputed again.
func (cnf *Configuration) RedisputeAllowed() bool {
	return cnf.Policy.AllowRedispute == nil || *cnf.Policy.AllowRedispute
}

// DecimalPlaces returns the configured precision, or the default when unset.
func (cnf *Configuration) DecimalPlaces() int32 {
	if cnf.Precision == nil {
		return DEFAULT_PRECISION
	}
	return *cnf.Precision
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.Precision == nil {
		precision := int32(DEFAULT_PRECISION)
		cnf.Precision = &precision
	}
	if *cnf.Precision < 0 || *cnf.Precision > MAX_PRECISION {
		return fmt.Errorf("precision must be between 0 and %d", MAX_PRECISION)
	}

	// Trim white spaces from fields
	cnf.Log.Level = strings.ToLower(strings.TrimSpace(cnf.Log.Level))
	cnf.Log.Format = strings.ToLower(strings.TrimSpace(cnf.Log.Format))
	cnf.Output.Format = strings.ToLower(strings.TrimSpace(cnf.Output.Format))

	if cnf.Log.Level == "" {
		cnf.Log.Level = DEFAULT_LOG_LEVEL
	}
	if _, err := logrus.ParseLevel(cnf.Log.Level); err != nil {
		return err
	}

	switch cnf.Log.Format {
	case "":
		cnf.Log.Format = "text"
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q", cnf.Log.Format)
	}

	if cnf.Output.Format == "" {
		cnf.Output.Format = DEFAULT_OUTPUT_FORMAT
	}
	return nil
}

// ConfigureLogger applies the log settings to the standard logrus logger.
func (cnf *Configuration) ConfigureLogger() {
	level, err := logrus.ParseLevel(cnf.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stderr)
	if cnf.Log.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	log.SetOutput(logger.Writer())
}
