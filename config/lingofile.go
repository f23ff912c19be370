// Package config — .lingo.yaml project configuration and environment
// settings for the lingo CLI.
//
// When a .lingo.yaml file exists in the project root, it is the sole source
// of truth for translation targets: every file to localize must be declared
// explicitly.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up in the project root.
const FileName = ".lingo.yaml"

// Target types supported by the CLI.
const (
	// TargetTypeJSON is a flat or nested JSON translation file.
	TargetTypeJSON = "json"
	// TargetTypePO is a gettext PO catalog.
	TargetTypePO = "po"
)

// LingoFile is the top-level .lingo.yaml structure.
type LingoFile struct {
	// SourceLocale is the source language code (default "en").
	SourceLocale string `yaml:"source_locale,omitempty"`
	// TargetLocales is the default locale list for all targets.
	TargetLocales []string `yaml:"target_locales,omitempty"`
	// Targets is the list of files to localize.
	Targets []Target `yaml:"targets"`
}

// Target describes one file to localize.
type Target struct {
	// Name is a human-readable label shown in status/logs.
	Name string `yaml:"name"`
	// Type: "json" or "po".
	Type string `yaml:"type"`
	// Path is the source file, relative to the project root.
	Path string `yaml:"path"`
	// Out is the output path template; "{locale}" is replaced per target
	// locale. Defaults to the source path with the locale injected before
	// the extension.
	Out string `yaml:"out,omitempty"`
	// Locales overrides the global target locale list for this target.
	Locales []string `yaml:"locales,omitempty"`
	// Fast enables fast mode for this target.
	Fast bool `yaml:"fast,omitempty"`
}

// OutPath resolves the output file for one locale.
func (t Target) OutPath(locale string) string {
	if t.Out != "" {
		return strings.ReplaceAll(t.Out, "{locale}", locale)
	}
	ext := filepath.Ext(t.Path)
	base := strings.TrimSuffix(t.Path, ext)
	return base + "." + locale + ext
}

// EffectiveLocales returns the locale list for this target, falling back to
// the project-wide list.
func (t Target) EffectiveLocales(project *LingoFile) []string {
	if len(t.Locales) > 0 {
		return t.Locales
	}
	return project.TargetLocales
}

// Exists reports whether root contains a .lingo.yaml.
func Exists(root string) bool {
	_, err := os.Stat(filepath.Join(root, FileName))
	return err == nil
}

// Load reads and validates the .lingo.yaml in root.
func Load(root string) (*LingoFile, error) {
	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var project LingoFile
	if err := yaml.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if project.SourceLocale == "" {
		project.SourceLocale = "en"
	}

	if err := project.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &project, nil
}

func (f *LingoFile) validate() error {
	if len(f.Targets) == 0 {
		return fmt.Errorf("no targets declared")
	}

	seen := make(map[string]struct{}, len(f.Targets))
	for i, target := range f.Targets {
		if strings.TrimSpace(target.Name) == "" {
			return fmt.Errorf("target %d: name is required", i)
		}
		if _, dup := seen[target.Name]; dup {
			return fmt.Errorf("duplicate target name %q", target.Name)
		}
		seen[target.Name] = struct{}{}

		switch target.Type {
		case TargetTypeJSON, TargetTypePO:
		default:
			return fmt.Errorf("target %q: unknown type %q (want %q or %q)",
				target.Name, target.Type, TargetTypeJSON, TargetTypePO)
		}

		if strings.TrimSpace(target.Path) == "" {
			return fmt.Errorf("target %q: path is required", target.Name)
		}
		if len(target.Locales) == 0 && len(f.TargetLocales) == 0 {
			return fmt.Errorf("target %q: no target locales (set target_locales or per-target locales)", target.Name)
		}
	}
	return nil
}
