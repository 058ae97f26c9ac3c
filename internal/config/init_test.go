package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

func TestInitializeConfigurationCreatesLocalFile(t *testing.T) {
	workingDirectory := t.TempDir()
	options := InitOptions{WorkingDirectory: workingDirectory, Target: InitTargetLocal}
	path, err := InitializeConfiguration(options)
	if err != nil {
		t.Fatalf("InitializeConfiguration error: %v", err)
	}
	expectedPath := filepath.Join(workingDirectory, ConfigFileName)
	if path != expectedPath {
		t.Fatalf("expected path %s, got %s", expectedPath, path)
	}
	content, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatalf("read config: %v", readErr)
	}
	if !strings.Contains(string(content), "default_concept:") {
		t.Fatalf("unexpected configuration content: %s", string(content))
	}
}

func TestInitializeConfigurationHonorsGlobalTarget(t *testing.T) {
	homeDir := t.TempDir()
	path, err := InitializeConfiguration(InitOptions{Target: InitTargetGlobal, HomeDirectory: homeDir, Force: true})
	if err != nil {
		t.Fatalf("InitializeConfiguration error: %v", err)
	}
	expectedPath := filepath.Join(homeDir, GlobalConfigDirectoryName, ConfigFileName)
	if path != expectedPath {
		t.Fatalf("expected configuration at %s, got %s", expectedPath, path)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatalf("expected file to exist at %s: %v", path, statErr)
	}
}

func TestInitializeConfigurationPreventsOverwriteWithoutForce(t *testing.T) {
	workingDirectory := t.TempDir()
	path := filepath.Join(workingDirectory, ConfigFileName)
	if err := os.WriteFile(path, []byte("existing"), 0o600); err != nil {
		t.Fatalf("write seed config: %v", err)
	}
	_, err := InitializeConfiguration(InitOptions{WorkingDirectory: workingDirectory, Target: InitTargetLocal, Force: false})
	if err == nil {
		t.Fatalf("expected error when configuration already exists")
	}
	if _, forceErr := InitializeConfiguration(InitOptions{WorkingDirectory: workingDirectory, Target: InitTargetLocal, Force: true}); forceErr != nil {
		t.Fatalf("expected forced initialization to succeed: %v", forceErr)
	}
}

func TestInitializedTemplateLoadsAsDefaults(t *testing.T) {
	workingDirectory := t.TempDir()
	if _, err := InitializeConfiguration(InitOptions{WorkingDirectory: workingDirectory}); err != nil {
		t.Fatalf("InitializeConfiguration error: %v", err)
	}
	loaded, err := Load(LoadOptions{
		WorkingDirectory:  workingDirectory,
		HomeDirectory:     t.TempDir(),
		LookupEnvironment: emptyEnvironment,
	})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.Timeout != DefaultTimeout || loaded.Executable != DefaultExecutable || loaded.Preview.MaximumLimit != DefaultPreviewMaximum {
		t.Fatalf("template diverges from defaults: %+v", loaded)
	}
}

func TestInitializeConfigurationRejectsUnknownTarget(t *testing.T) {
	if _, err := InitializeConfiguration(InitOptions{Target: InitTarget("remote"), WorkingDirectory: t.TempDir()}); err == nil {
		t.Fatalf("expected error for unsupported target")
	}
}

func TestDefaultTemplateListsEverySetting(t *testing.T) {
	template, err := DefaultTemplate()
	if err != nil {
		t.Fatalf("DefaultTemplate error: %v", err)
	}
	if !strings.HasPrefix(string(template), "# vaultctx configuration.") {
		t.Fatalf("template lacks its header:\n%s", template)
	}
	var document map[string]any
	if err := yaml.Unmarshal(template, &document); err != nil {
		t.Fatalf("template is not yaml: %v", err)
	}
	for _, key := range []string{"project_root", "default_concept", "models_directory", "executable", "virtual_environment", "timeout", "preview", "tokens", "server"} {
		if _, found := document[key]; !found {
			t.Fatalf("template is missing %s:\n%s", key, template)
		}
	}
	preview, isMap := document["preview"].(map[string]any)
	if !isMap || preview["maximum_limit"] != DefaultPreviewMaximum {
		t.Fatalf("unexpected preview section: %v", document["preview"])
	}
}

func TestInitializeConfigurationUsesProvidedFilesystem(t *testing.T) {
	filesystem := afero.NewMemMapFs()
	path, err := InitializeConfiguration(InitOptions{Target: InitTargetGlobal, HomeDirectory: "/home/analyst", Filesystem: filesystem})
	if err != nil {
		t.Fatalf("InitializeConfiguration error: %v", err)
	}
	if path != filepath.Join("/home/analyst", GlobalConfigDirectoryName, ConfigFileName) {
		t.Fatalf("unexpected path %s", path)
	}
	exists, existsErr := afero.Exists(filesystem, path)
	if existsErr != nil || !exists {
		t.Fatalf("expected configuration in the provided filesystem (%v)", existsErr)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		t.Fatalf("configuration leaked onto the operating system filesystem")
	}
}
