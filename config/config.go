package config

import (
	"fmt"
	"os"
	"path"

	homedir "github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v2"

	"github.com/fpgaflow/fpgaflow/log"
	"github.com/fpgaflow/fpgaflow/util"
)

// Config holds toolchain glue settings consumed by the CLI. The core
// packages never read it so they stay free of process-wide state.
type Config struct {
	// VivadoHls is the path to the vitis_hls/vivado_hls binary.
	VivadoHls string `yaml:"vivado_hls"`
	// QuartusSh is the path to the quartus_sh binary.
	QuartusSh string `yaml:"quartus_sh"`
	// DefaultPart overrides the built-in default device per target name.
	DefaultPart map[string]string `yaml:"default_part"`
}

var config *Config

const configFileName string = "config.yaml"

func getConfigDir() (string, error) {
	if configDir, ok := os.LookupEnv("FPGAFLOW_CONFIG_DIR"); ok {
		return configDir, nil
	}

	if xdgConfigHome, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		return path.Join(xdgConfigHome, "fpgaflow"), nil
	}

	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("unable to locate the configuration directory: %w", err)
	}
	return path.Join(home, ".config", "fpgaflow"), nil
}

func loadConfiguration() Config {
	var config Config

	configDir, err := getConfigDir()
	if err != nil || !util.DirExists(configDir) {
		log.Debug("Unable to find fpgaflow config directory. Using default configuration\n")
		return config
	}

	configFilePath := path.Join(configDir, configFileName)
	if !util.FileExists(configFilePath) {
		log.Debug("No configuration file at `%s`. Using default configuration\n", configFilePath)
		return config
	}
	data, err := os.ReadFile(configFilePath)
	if err != nil {
		log.Debug("Configuration file at `%s` is unreadable. Using default configuration\n", configFilePath)
		return config
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		log.Debug("Error reading configuration file at `%s`: `%s`. Using default configuration\n", configFilePath, err)
		return config
	}

	log.Debug("Loaded configuration from `%s`\n", configFilePath)
	log.Debug("Running with configuration: %+v\n", config)
	return config
}

// GetConfig lazily loads and returns the tool configuration.
func GetConfig() Config {
	if config == nil {
		loadedConfig := loadConfiguration()
		config = &loadedConfig
	}

	return *config
}
