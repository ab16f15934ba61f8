package cmd

import (
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config carries defaults for recurring invocations. Flags set on the
// command line take precedence over config file values.
type Config struct {
	Match  string `yaml:"match"`
	Output string `yaml:"output"`
	Pause  bool   `yaml:"pause"`
	Sync   bool   `yaml:"sync"`
}

func parseYaml(l *zap.Logger, path string, conf interface{}) error {
	l.Info("Loading config file", zap.String("path", path))
	configFile, err := os.Open(path)
	if err != nil {
		return err
	}
	defer configFile.Close()

	yamlConfString, err := io.ReadAll(configFile)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(yamlConfString, conf)
}
