package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

const (
	directoryPermissions = 0o755
	artifactPermissions  = 0o644
)

// ErrArtifactExists is returned when writing over an existing artifact without force.
var ErrArtifactExists = errors.New("artifact already exists")

// Workspace performs the disk access layered on top of a Layout: existence
// checks, directory creation, artifact writes, and concept discovery.
type Workspace struct {
	filesystem afero.Fs
	layout     Layout
}

// NewWorkspace roots a workspace at projectRoot on the operating system filesystem.
func NewWorkspace(projectRoot string, layout Layout) Workspace {
	return NewWorkspaceOnFilesystem(afero.NewBasePathFs(afero.NewOsFs(), projectRoot), layout)
}

// NewWorkspaceOnFilesystem uses filesystem as the project root.
func NewWorkspaceOnFilesystem(filesystem afero.Fs, layout Layout) Workspace {
	return Workspace{filesystem: filesystem, layout: layout}
}

// Layout returns the resolver used by the workspace.
func (workspace Workspace) Layout() Layout {
	return workspace.layout
}

// Filesystem exposes the project filesystem to collaborators such as catalog stores.
func (workspace Workspace) Filesystem() afero.Fs {
	return workspace.filesystem
}

// Exists reports whether relativePath exists inside the project.
func (workspace Workspace) Exists(relativePath string) (bool, error) {
	exists, err := afero.Exists(workspace.filesystem, filepath.FromSlash(relativePath))
	if err != nil {
		return false, fmt.Errorf("check %s: %w", relativePath, err)
	}
	return exists, nil
}

// EnsureDirectory creates relativeDirectory and its parents.
func (workspace Workspace) EnsureDirectory(relativeDirectory string) error {
	if err := workspace.filesystem.MkdirAll(filepath.FromSlash(relativeDirectory), directoryPermissions); err != nil {
		return fmt.Errorf("create directory %s: %w", relativeDirectory, err)
	}
	return nil
}

// WriteArtifact resolves entity, creates its directory, and writes content.
// Existing files are only replaced when overwrite is set.
func (workspace Workspace) WriteArtifact(entity Entity, content []byte, overwrite bool) (string, error) {
	relativePath, resolveErr := workspace.layout.Resolve(entity)
	if resolveErr != nil {
		return "", resolveErr
	}
	exists, existsErr := workspace.Exists(relativePath)
	if existsErr != nil {
		return "", existsErr
	}
	if exists && !overwrite {
		return relativePath, fmt.Errorf("%w: %s", ErrArtifactExists, relativePath)
	}
	if err := workspace.EnsureDirectory(path.Dir(relativePath)); err != nil {
		return "", err
	}
	if err := afero.WriteFile(workspace.filesystem, filepath.FromSlash(relativePath), content, artifactPermissions); err != nil {
		return "", fmt.Errorf("write %s: %w", relativePath, err)
	}
	return relativePath, nil
}

// Concepts lists the concept directories under the raw vault, sorted by name.
// A project without a raw vault has no concepts.
func (workspace Workspace) Concepts() ([]string, error) {
	rawVault := filepath.FromSlash(workspace.layout.RawVaultDirectory())
	entries, readErr := afero.ReadDir(workspace.filesystem, rawVault)
	if readErr != nil {
		if errors.Is(readErr, fs.ErrNotExist) || os.IsNotExist(readErr) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list concepts in %s: %w", rawVault, readErr)
	}
	concepts := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			concepts = append(concepts, entry.Name())
		}
	}
	sort.Strings(concepts)
	return concepts, nil
}
