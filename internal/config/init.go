package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// InitTarget identifies where configuration should be initialized.
type InitTarget string

const (
	// InitTargetLocal writes configuration into the working directory.
	InitTargetLocal InitTarget = "local"
	// InitTargetGlobal writes configuration into the global configuration directory.
	InitTargetGlobal InitTarget = "global"

	templateHeader           = "# vaultctx configuration. Environment variables prefixed with " + environmentPrefix + "_ override these values.\n"
	templateIndentation      = 2
	configurationPermissions = 0o600
	directoryPermissions     = 0o755
)

// InitOptions controls how configuration initialization behaves.
// Filesystem defaults to the operating system filesystem.
type InitOptions struct {
	Target           InitTarget
	Force            bool
	WorkingDirectory string
	HomeDirectory    string
	Filesystem       afero.Fs
}

// DefaultTemplate renders every default setting as a YAML document.
func DefaultTemplate() ([]byte, error) {
	reader := viper.New()
	applyDefaults(reader)
	var buffer bytes.Buffer
	buffer.WriteString(templateHeader)
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(templateIndentation)
	if err := encoder.Encode(reader.AllSettings()); err != nil {
		return nil, fmt.Errorf("render configuration template: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("render configuration template: %w", err)
	}
	return buffer.Bytes(), nil
}

// InitializeConfiguration writes the default configuration to the requested
// target and returns the written path. An existing file is only replaced with Force.
func InitializeConfiguration(options InitOptions) (string, error) {
	filesystem := options.Filesystem
	if filesystem == nil {
		filesystem = afero.NewOsFs()
	}
	destinationDirectory, directoryErr := initDirectory(options)
	if directoryErr != nil {
		return "", directoryErr
	}
	destinationPath := filepath.Join(destinationDirectory, ConfigFileName)

	exists, existsErr := afero.Exists(filesystem, destinationPath)
	if existsErr != nil {
		return "", fmt.Errorf("inspect configuration path %s: %w", destinationPath, existsErr)
	}
	if exists && !options.Force {
		return "", fmt.Errorf("configuration file already exists at %s", destinationPath)
	}

	template, templateErr := DefaultTemplate()
	if templateErr != nil {
		return "", templateErr
	}
	if err := filesystem.MkdirAll(destinationDirectory, directoryPermissions); err != nil {
		return "", fmt.Errorf("create configuration directory %s: %w", destinationDirectory, err)
	}
	if err := afero.WriteFile(filesystem, destinationPath, template, configurationPermissions); err != nil {
		return "", fmt.Errorf("write configuration to %s: %w", destinationPath, err)
	}
	return destinationPath, nil
}

func initDirectory(options InitOptions) (string, error) {
	switch options.Target {
	case InitTargetLocal, "":
		if options.WorkingDirectory != "" {
			return options.WorkingDirectory, nil
		}
		workingDirectory, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determine working directory for configuration: %w", err)
		}
		return workingDirectory, nil
	case InitTargetGlobal:
		homeDirectory := options.HomeDirectory
		if homeDirectory == "" {
			resolvedHome, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("resolve home directory for configuration: %w", err)
			}
			homeDirectory = resolvedHome
		}
		return filepath.Join(homeDirectory, GlobalConfigDirectoryName), nil
	default:
		return "", fmt.Errorf("unsupported init target %q", options.Target)
	}
}
