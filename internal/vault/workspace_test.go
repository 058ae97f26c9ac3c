package vault

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestWorkspaceWriteArtifact(t *testing.T) {
	filesystem := afero.NewMemMapFs()
	workspace := NewWorkspaceOnFilesystem(filesystem, NewLayout("jira"))
	entity := Entity{Kind: KindHub, Name: "issue"}

	writtenPath, writeErr := workspace.WriteArtifact(entity, []byte("select 1"), false)
	if writeErr != nil {
		t.Fatalf("WriteArtifact error: %v", writeErr)
	}
	if writtenPath != "models/raw_vault/jira/hubs/hub_issue.sql" {
		t.Fatalf("unexpected path: %s", writtenPath)
	}
	exists, existsErr := workspace.Exists(writtenPath)
	if existsErr != nil || !exists {
		t.Fatalf("artifact not written: %v", existsErr)
	}

	if _, err := workspace.WriteArtifact(entity, []byte("select 2"), false); !errors.Is(err, ErrArtifactExists) {
		t.Fatalf("expected ErrArtifactExists, got %v", err)
	}
	if _, err := workspace.WriteArtifact(entity, []byte("select 2"), true); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	content, readErr := afero.ReadFile(filesystem, writtenPath)
	if readErr != nil {
		t.Fatalf("read artifact: %v", readErr)
	}
	if string(content) != "select 2" {
		t.Fatalf("unexpected content: %q", content)
	}
}

func TestWorkspaceConcepts(t *testing.T) {
	filesystem := afero.NewMemMapFs()
	workspace := NewWorkspaceOnFilesystem(filesystem, NewLayout("jira"))

	concepts, err := workspace.Concepts()
	if err != nil {
		t.Fatalf("Concepts error: %v", err)
	}
	if len(concepts) != 0 {
		t.Fatalf("expected no concepts, got %v", concepts)
	}

	for _, directory := range []string{"models/raw_vault/sap/hubs", "models/raw_vault/jira", "models/raw_vault/.cache"} {
		if mkdirErr := workspace.EnsureDirectory(directory); mkdirErr != nil {
			t.Fatalf("EnsureDirectory error: %v", mkdirErr)
		}
	}
	if writeErr := afero.WriteFile(filesystem, "models/raw_vault/README.md", []byte("notes"), 0o644); writeErr != nil {
		t.Fatalf("write file: %v", writeErr)
	}

	concepts, err = workspace.Concepts()
	if err != nil {
		t.Fatalf("Concepts error: %v", err)
	}
	if strings.Join(concepts, ",") != "jira,sap" {
		t.Fatalf("unexpected concepts: %v", concepts)
	}
}
