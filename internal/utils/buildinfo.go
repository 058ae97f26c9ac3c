// Package utils holds process-level helpers shared by the vaultctx binary:
// logger construction, version lookup, and common constants.
package utils

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime/debug"
	"strings"
)

const (
	unknownVersion = "unknown"
	develVersion   = "(devel)"
	gitExecutable  = "git"
)

// Version is stamped at build time with -ldflags "-X github.com/temirov/vaultctx/internal/utils.Version=v1.2.3".
var Version = EmptyString

var gitDescribeArguments = [][]string{
	{"describe", "--tags", "--exact-match"},
	{"describe", "--tags", "--long", "--dirty"},
}

var errGitDirectoryNotFound = errors.New("git directory not found")

// GetApplicationVersion prefers the stamped Version, then the module version
// recorded by the Go toolchain, then git describe when run from a checkout.
func GetApplicationVersion() string {
	if stamped := strings.TrimSpace(Version); stamped != EmptyString {
		return stamped
	}
	if buildInfo, available := debug.ReadBuildInfo(); available {
		if moduleVersion := buildInfo.Main.Version; moduleVersion != EmptyString && moduleVersion != develVersion {
			return moduleVersion
		}
	}
	if repositoryRoot, err := findGitDirectory("."); err == nil {
		for _, arguments := range gitDescribeArguments {
			if described := gitDescribe(repositoryRoot, arguments); described != EmptyString {
				return described
			}
		}
	}
	return unknownVersion
}

func gitDescribe(repositoryRoot string, arguments []string) string {
	// #nosec G204
	command := exec.Command(gitExecutable, arguments...)
	command.Dir = repositoryRoot
	output, err := command.Output()
	if err != nil {
		return EmptyString
	}
	return strings.TrimSpace(string(output))
}

// findGitDirectory returns the closest directory at or above startDirectory
// that contains a .git directory.
func findGitDirectory(startDirectory string) (string, error) {
	currentDirectory, err := filepath.Abs(startDirectory)
	if err != nil {
		return EmptyString, err
	}
	for {
		if information, statErr := os.Stat(filepath.Join(currentDirectory, GitDirectoryName)); statErr == nil && information.IsDir() {
			return currentDirectory, nil
		}
		parentDirectory := filepath.Dir(currentDirectory)
		if parentDirectory == currentDirectory {
			return EmptyString, errGitDirectoryNotFound
		}
		currentDirectory = parentDirectory
	}
}
