// Package project locates and describes the workspace a target belongs to.
package project

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Language is the workspace's primary language as detected from its manifest.
type Language string

const (
	LangGo      Language = "go"
	LangRust    Language = "rust"
	LangUnknown Language = "unknown"
)

// Workspace describes a detected project root.
type Workspace struct {
	Root         string   `json:"root"`
	Language     Language `json:"language"`
	ManifestPath string   `json:"manifestPath"`

	// Name is the module or package name declared in the manifest.
	Name string `json:"name"`
}

// DotDir returns the workspace's .ctxslice directory.
func (w *Workspace) DotDir() string {
	return filepath.Join(w.Root, ".ctxslice")
}

// FindWorkspaceRoot walks up from start looking for a go.mod or Cargo.toml.
// For Cargo workspaces the walk continues upward so a member crate resolves
// to the workspace root, matching how the build tools scope a project.
func FindWorkspaceRoot(start string) (*Workspace, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	var found *Workspace
	for {
		if ws := detectAt(dir); ws != nil {
			found = ws
			// A go.mod is authoritative; a Cargo.toml may be a member
			// crate of an enclosing workspace, keep walking.
			if ws.Language == LangGo || isCargoWorkspace(ws.ManifestPath) {
				return ws, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if found != nil {
		return found, nil
	}
	return nil, fmt.Errorf("no go.mod or Cargo.toml found above %s", start)
}

func detectAt(dir string) *Workspace {
	if manifest := filepath.Join(dir, "go.mod"); fileExists(manifest) {
		return &Workspace{
			Root:         dir,
			Language:     LangGo,
			ManifestPath: manifest,
			Name:         goModuleName(manifest),
		}
	}
	if manifest := filepath.Join(dir, "Cargo.toml"); fileExists(manifest) {
		return &Workspace{
			Root:         dir,
			Language:     LangRust,
			ManifestPath: manifest,
			Name:         cargoPackageName(manifest),
		}
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// goModuleName reads the module directive from a go.mod file.
func goModuleName(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "module ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "module "))
		}
	}
	return ""
}

// cargoManifest is the subset of Cargo.toml the detector cares about.
type cargoManifest struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
	Workspace *struct {
		Members []string `toml:"members"`
	} `toml:"workspace"`
}

func parseCargoManifest(path string) (*cargoManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m cargoManifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func cargoPackageName(path string) string {
	m, err := parseCargoManifest(path)
	if err != nil {
		return ""
	}
	return m.Package.Name
}

// isCargoWorkspace reports whether a Cargo.toml declares a [workspace] table.
func isCargoWorkspace(path string) bool {
	m, err := parseCargoManifest(path)
	if err != nil {
		return false
	}
	return m.Workspace != nil
}
