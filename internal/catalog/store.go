package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	documentIndentation  = 2
	directoryPermissions = 0o755
	documentPermissions  = 0o644
)

// Store performs read-modify-write cycles over catalog documents. It holds no
// locks: two writers editing the same document race and the later write wins.
type Store struct {
	filesystem afero.Fs
}

// NewStore creates a Store over filesystem.
func NewStore(filesystem afero.Fs) Store {
	return Store{filesystem: filesystem}
}

// ReadSources loads a source catalog. A missing document is an empty catalog.
func (store Store) ReadSources(documentPath string) (SourceCatalog, error) {
	catalog := SourceCatalog{Version: DefaultVersion}
	found, readErr := store.read(documentPath, &catalog)
	if readErr != nil {
		return SourceCatalog{}, readErr
	}
	if !found {
		return SourceCatalog{Version: DefaultVersion}, nil
	}
	return catalog, nil
}

// WriteSources replaces the source catalog at documentPath.
func (store Store) WriteSources(documentPath string, catalog SourceCatalog) error {
	return store.write(documentPath, catalog)
}

// ReadModels loads a model catalog. A missing document is an empty catalog.
func (store Store) ReadModels(documentPath string) (ModelCatalog, error) {
	catalog := ModelCatalog{Version: DefaultVersion}
	found, readErr := store.read(documentPath, &catalog)
	if readErr != nil {
		return ModelCatalog{}, readErr
	}
	if !found {
		return ModelCatalog{Version: DefaultVersion}, nil
	}
	return catalog, nil
}

// WriteModels replaces the model catalog at documentPath.
func (store Store) WriteModels(documentPath string, catalog ModelCatalog) error {
	return store.write(documentPath, catalog)
}

// AppendTable adds table to the named source group, creating the group when
// needed. A table with the same name is replaced in place.
func (store Store) AppendTable(documentPath string, sourceName string, table Table) (SourceCatalog, error) {
	if strings.TrimSpace(sourceName) == "" {
		return SourceCatalog{}, errors.New("source name is required")
	}
	if strings.TrimSpace(table.Name) == "" {
		return SourceCatalog{}, errors.New("table name is required")
	}
	catalog, readErr := store.ReadSources(documentPath)
	if readErr != nil {
		return SourceCatalog{}, readErr
	}

	groupIndex := -1
	for index, group := range catalog.Sources {
		if group.Name == sourceName {
			groupIndex = index
			break
		}
	}
	if groupIndex < 0 {
		catalog.Sources = append(catalog.Sources, SourceGroup{Name: sourceName})
		groupIndex = len(catalog.Sources) - 1
	}

	group := &catalog.Sources[groupIndex]
	replaced := false
	for index, existing := range group.Tables {
		if existing.Name == table.Name {
			group.Tables[index] = table
			replaced = true
			break
		}
	}
	if !replaced {
		group.Tables = append(group.Tables, table)
	}

	if writeErr := store.WriteSources(documentPath, catalog); writeErr != nil {
		return SourceCatalog{}, writeErr
	}
	return catalog, nil
}

// AppendModel adds model to the model catalog, replacing a model with the same name.
func (store Store) AppendModel(documentPath string, model Model) (ModelCatalog, error) {
	if strings.TrimSpace(model.Name) == "" {
		return ModelCatalog{}, errors.New("model name is required")
	}
	catalog, readErr := store.ReadModels(documentPath)
	if readErr != nil {
		return ModelCatalog{}, readErr
	}
	replaced := false
	for index, existing := range catalog.Models {
		if existing.Name == model.Name {
			catalog.Models[index] = model
			replaced = true
			break
		}
	}
	if !replaced {
		catalog.Models = append(catalog.Models, model)
	}
	if writeErr := store.WriteModels(documentPath, catalog); writeErr != nil {
		return ModelCatalog{}, writeErr
	}
	return catalog, nil
}

func (store Store) read(documentPath string, target any) (bool, error) {
	data, readErr := afero.ReadFile(store.filesystem, filepath.FromSlash(documentPath))
	if readErr != nil {
		if errors.Is(readErr, fs.ErrNotExist) || os.IsNotExist(readErr) {
			return false, nil
		}
		return false, fmt.Errorf("read catalog %s: %w", documentPath, readErr)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if unmarshalErr := yaml.Unmarshal(data, target); unmarshalErr != nil {
		return false, fmt.Errorf("parse catalog %s: %w", documentPath, unmarshalErr)
	}
	return true, nil
}

func (store Store) write(documentPath string, document any) error {
	encoded, encodeErr := Encode(document)
	if encodeErr != nil {
		return fmt.Errorf("encode catalog %s: %w", documentPath, encodeErr)
	}
	nativePath := filepath.FromSlash(documentPath)
	if mkdirErr := store.filesystem.MkdirAll(filepath.Dir(nativePath), directoryPermissions); mkdirErr != nil {
		return fmt.Errorf("create catalog directory for %s: %w", documentPath, mkdirErr)
	}
	if writeErr := afero.WriteFile(store.filesystem, nativePath, encoded, documentPermissions); writeErr != nil {
		return fmt.Errorf("write catalog %s: %w", documentPath, writeErr)
	}
	return nil
}

// Encode serializes document as YAML with two-space indentation and no line wrapping.
func Encode(document any) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(documentIndentation)
	if encodeErr := encoder.Encode(document); encodeErr != nil {
		return nil, encodeErr
	}
	if closeErr := encoder.Close(); closeErr != nil {
		return nil, closeErr
	}
	return buffer.Bytes(), nil
}
