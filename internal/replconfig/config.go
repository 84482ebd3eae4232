// Package replconfig loads the optional .thunkrc.yaml holding the REPL's
// user preferences. A missing file silently yields the defaults; a present
// but malformed one is reported, since silently ignoring a file the user
// wrote hides their mistake.
package replconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is looked up in the working directory, then in the user's
// home directory.
const ConfigFileName = ".thunkrc.yaml"

// Config holds the REPL preferences.
type Config struct {
	// Prompt is printed before each input line.
	Prompt string `yaml:"prompt"`
	// HistoryFile stores input history across sessions.
	HistoryFile string `yaml:"history_file"`
	// Trace turns on per-instruction VM tracing for every evaluation.
	Trace bool `yaml:"trace"`
}

// Default returns the configuration used when no .thunkrc.yaml exists.
func Default() *Config {
	return &Config{
		Prompt:      "λ> ",
		HistoryFile: filepath.Join(os.TempDir(), ".thunk_history"),
	}
}

// Load reads the first .thunkrc.yaml found in the working directory or the
// user's home directory, falling back to Default when neither exists.
func Load() (*Config, error) {
	paths := []string{ConfigFileName}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ConfigFileName))
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return Parse(data)
	}
	return Default(), nil
}

// Parse decodes yaml config bytes over the defaults, so omitted keys keep
// their default values.
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigFileName, err)
	}
	if config.Prompt == "" {
		config.Prompt = Default().Prompt
	}
	if config.HistoryFile == "" {
		config.HistoryFile = Default().HistoryFile
	}
	return config, nil
}
