// Package config loads vaultctx settings from configuration files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the configuration file looked up in the global and local directories.
	ConfigFileName = "vaultctx.yaml"
	// GlobalConfigDirectoryName is the directory under the user's home holding the global configuration.
	GlobalConfigDirectoryName = ".vaultctx"

	environmentPrefix = "VAULTCTX"

	DefaultProjectRoot        = "."
	DefaultConcept            = "default"
	DefaultModelsDirectory    = "models"
	DefaultExecutable         = "dbt"
	DefaultVirtualEnvironment = ".venv"
	DefaultTimeout            = 120 * time.Second
	DefaultPreviewLimit       = 10
	DefaultPreviewMaximum     = 100
	DefaultTokenizerModel     = "gpt-4o"
	DefaultHTTPAddress        = "127.0.0.1:0"
)

const (
	keyProjectRoot        = "project_root"
	keyDefaultConcept     = "default_concept"
	keyModelsDirectory    = "models_directory"
	keyExecutable         = "executable"
	keyVirtualEnvironment = "virtual_environment"
	keyTimeout            = "timeout"
	keyPreviewDefault     = "preview.default_limit"
	keyPreviewMaximum     = "preview.maximum_limit"
	keyMaxOutputTokens    = "tokens.max_output_tokens"
	keyTokenizerModel     = "tokens.model"
	keyHTTPAddress        = "server.address"
)

// environmentBindings maps configuration keys to the environment variables overriding them.
var environmentBindings = map[string]string{
	keyProjectRoot:        environmentPrefix + "_PROJECT_ROOT",
	keyDefaultConcept:     environmentPrefix + "_DEFAULT_CONCEPT",
	keyModelsDirectory:    environmentPrefix + "_MODELS_DIRECTORY",
	keyExecutable:         environmentPrefix + "_EXECUTABLE",
	keyVirtualEnvironment: environmentPrefix + "_VENV",
	keyTimeout:            environmentPrefix + "_TIMEOUT",
	keyMaxOutputTokens:    environmentPrefix + "_MAX_OUTPUT_TOKENS",
	keyTokenizerModel:     environmentPrefix + "_TOKENIZER_MODEL",
	keyHTTPAddress:        environmentPrefix + "_HTTP_ADDRESS",
}

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory  string
	HomeDirectory     string
	ExplicitFilePath  string
	LookupEnvironment func(string) (string, bool)
}

// Configuration is the fully resolved application configuration. It is
// built once at startup and handed to every component explicitly.
type Configuration struct {
	ProjectRoot        string               `mapstructure:"project_root"`
	DefaultConcept     string               `mapstructure:"default_concept"`
	ModelsDirectory    string               `mapstructure:"models_directory"`
	Executable         string               `mapstructure:"executable"`
	VirtualEnvironment string               `mapstructure:"virtual_environment"`
	Timeout            time.Duration        `mapstructure:"timeout"`
	Preview            PreviewConfiguration `mapstructure:"preview"`
	Tokens             TokenConfiguration   `mapstructure:"tokens"`
	Server             ServerConfiguration  `mapstructure:"server"`
}

// PreviewConfiguration bounds the row limit of parquet previews.
type PreviewConfiguration struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaximumLimit int `mapstructure:"maximum_limit"`
}

// TokenConfiguration controls the optional token budget applied to tool payloads.
type TokenConfiguration struct {
	MaxOutputTokens int    `mapstructure:"max_output_tokens"`
	Model           string `mapstructure:"model"`
}

// ServerConfiguration configures the HTTP capability server.
type ServerConfiguration struct {
	Address string `mapstructure:"address"`
}

// Load reads the global configuration, then the local or explicit configuration,
// then the environment. Later sources override earlier ones.
func Load(options LoadOptions) (Configuration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return Configuration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	reader := viper.New()
	applyDefaults(reader)

	homeDirectory := options.HomeDirectory
	if homeDirectory == "" {
		if resolvedHome, err := os.UserHomeDir(); err == nil {
			homeDirectory = resolvedHome
		}
	}
	if homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, GlobalConfigDirectoryName, ConfigFileName)
		if err := mergeConfigurationFile(reader, globalPath, false); err != nil {
			return Configuration{}, err
		}
	}

	localPath := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if err := mergeConfigurationFile(reader, localPath, options.ExplicitFilePath != ""); err != nil {
		return Configuration{}, err
	}

	lookupEnvironment := options.LookupEnvironment
	if lookupEnvironment == nil {
		lookupEnvironment = os.LookupEnv
	}
	for key, variable := range environmentBindings {
		if value, found := lookupEnvironment(variable); found && strings.TrimSpace(value) != "" {
			reader.Set(key, strings.TrimSpace(value))
		}
	}

	var configuration Configuration
	if decodeErr := reader.Unmarshal(&configuration); decodeErr != nil {
		return Configuration{}, fmt.Errorf("decode configuration: %w", decodeErr)
	}

	if !filepath.IsAbs(configuration.ProjectRoot) {
		configuration.ProjectRoot = filepath.Join(workingDirectory, configuration.ProjectRoot)
	}
	configuration.ProjectRoot = filepath.Clean(configuration.ProjectRoot)

	if validationErr := configuration.Validate(); validationErr != nil {
		return Configuration{}, validationErr
	}
	return configuration, nil
}

// Validate reports settings that no component could honor.
func (configuration Configuration) Validate() error {
	if strings.TrimSpace(configuration.Executable) == "" {
		return errors.New("executable must not be empty")
	}
	if configuration.Timeout < 0 {
		return fmt.Errorf("timeout %s must not be negative", configuration.Timeout)
	}
	if configuration.Preview.DefaultLimit < 1 {
		return fmt.Errorf("preview default limit %d must be at least 1", configuration.Preview.DefaultLimit)
	}
	if configuration.Preview.MaximumLimit < configuration.Preview.DefaultLimit {
		return fmt.Errorf("preview maximum limit %d is below the default limit %d", configuration.Preview.MaximumLimit, configuration.Preview.DefaultLimit)
	}
	if configuration.Tokens.MaxOutputTokens < 0 {
		return fmt.Errorf("max output tokens %d must not be negative", configuration.Tokens.MaxOutputTokens)
	}
	return nil
}

func applyDefaults(reader *viper.Viper) {
	reader.SetDefault(keyProjectRoot, DefaultProjectRoot)
	reader.SetDefault(keyDefaultConcept, DefaultConcept)
	reader.SetDefault(keyModelsDirectory, DefaultModelsDirectory)
	reader.SetDefault(keyExecutable, DefaultExecutable)
	reader.SetDefault(keyVirtualEnvironment, DefaultVirtualEnvironment)
	reader.SetDefault(keyTimeout, DefaultTimeout.String())
	reader.SetDefault(keyPreviewDefault, DefaultPreviewLimit)
	reader.SetDefault(keyPreviewMaximum, DefaultPreviewMaximum)
	reader.SetDefault(keyMaxOutputTokens, 0)
	reader.SetDefault(keyTokenizerModel, DefaultTokenizerModel)
	reader.SetDefault(keyHTTPAddress, DefaultHTTPAddress)
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) string {
	if explicitPath == "" {
		return filepath.Join(workingDirectory, ConfigFileName)
	}
	if filepath.IsAbs(explicitPath) {
		return explicitPath
	}
	return filepath.Join(workingDirectory, explicitPath)
}

// mergeConfigurationFile overlays the file at path onto reader. Missing files
// are skipped unless required is set.
func mergeConfigurationFile(reader *viper.Viper, path string, required bool) error {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) && !required {
			return nil
		}
		return fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return fmt.Errorf("configuration path %s is a directory", path)
	}
	reader.SetConfigFile(path)
	if readErr := reader.MergeInConfig(); readErr != nil {
		return fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	return nil
}
