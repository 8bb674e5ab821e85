package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// SourceKind says where an effective value came from.
type SourceKind string

const (
	SourceDefault SourceKind = "default"
	SourceState   SourceKind = "state"
	SourceFile    SourceKind = "file"
)

// Source locates a value: a file position, the state file or the defaults.
type Source struct {
	Kind   SourceKind
	Name   string // for default/state
	File   string
	Line   int
	Column int
}

// LoadResult is an effective config plus the provenance of every key set
// by a file.
type LoadResult struct {
	Config  *Config
	Sources map[string]Source // YAML-path -> last writer source (file only)
	Files   []string          // all loaded files, in load order
}

func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", appName, "config.yaml"), nil
}

// Load reads the merged configuration from the standard location and returns an
// effective config ready for use.
func Load() (*Config, error) {
	res, err := LoadWithSources()
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// LoadWithSources loads config and returns file-level sources for introspection.
func LoadWithSources() (*LoadResult, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads path and its includes. A missing file yields defaults.
func LoadFromPath(path string) (*LoadResult, error) {
	l := &layerLoader{
		visited:   make(map[string]bool),
		positions: make(map[string]Source),
	}

	var raw RawConfig
	if _, err := os.Stat(path); err == nil {
		if raw, err = l.load(path); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	cfg, err := BuildEffectiveConfig(raw)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return nil, l.locate(err)
	}
	return &LoadResult{
		Config:  cfg,
		Sources: l.positions,
		Files:   l.files,
	}, nil
}

// layerLoader merges a config file with everything it includes. Included
// layers apply first and the including file overrides them, so the main
// config always has the last word.
type layerLoader struct {
	visited   map[string]bool
	chain     []string
	positions map[string]Source
	files     []string
}

// layer is one decoded config file.
type layer struct {
	file      string
	raw       RawConfig
	positions map[string]Source
	includes  []includeRef
}

type includeRef struct {
	target string
	at     Source
}

func (l *layerLoader) load(path string) (RawConfig, error) {
	file, err := resolveFile(path)
	if err != nil {
		return RawConfig{}, err
	}
	for _, parent := range l.chain {
		if parent == file {
			return RawConfig{}, fmt.Errorf("include cycle detected: %s -> %s", strings.Join(l.chain, " -> "), file)
		}
	}
	if l.visited[file] {
		// Reached through another include; its keys are already merged.
		return RawConfig{}, nil
	}
	l.visited[file] = true

	ly, err := readLayer(file)
	if err != nil {
		return RawConfig{}, err
	}

	l.chain = append(l.chain, file)
	var merged RawConfig
	for _, inc := range ly.includes {
		targets, err := includeTargets(file, inc.target)
		if err != nil {
			return RawConfig{}, fmt.Errorf("%s:%d:%d: include %q: %w", inc.at.File, inc.at.Line, inc.at.Column, inc.target, err)
		}
		for _, target := range targets {
			incRaw, err := l.load(target)
			if err != nil {
				return RawConfig{}, err
			}
			merged = merged.merge(incRaw)
		}
	}
	l.chain = l.chain[:len(l.chain)-1]

	for key, src := range ly.positions {
		l.positions[key] = src
	}
	l.files = append(l.files, file)
	return merged.merge(ly.raw), nil
}

// locate attaches the file position of the offending key to a validation
// error.
func (l *layerLoader) locate(err error) error {
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Path == "" {
		return err
	}
	if src, ok := l.positions[verr.Path]; ok {
		verr.Source = src
	}
	return err
}

// readLayer decodes file strictly into RawConfig and walks its node tree for
// key positions and include directives.
func readLayer(file string) (*layer, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read: %w", file, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: failed to parse yaml: %w", file, err)
	}

	ly := &layer{file: file, positions: make(map[string]Source)}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&ly.raw); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%s: %w", file, err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind == yaml.MappingNode {
		ly.walk(root, "")
	}
	return ly, nil
}

func (ly *layer) at(n *yaml.Node) Source {
	return Source{Kind: SourceFile, File: ly.file, Line: n.Line, Column: n.Column}
}

func (ly *layer) walk(m *yaml.Node, prefix string) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		key, val := m.Content[i].Value, m.Content[i+1]
		if prefix == "" && key == "include" {
			ly.addIncludes(val)
		}
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		ly.positions[path] = ly.at(val)
		if val.Kind == yaml.MappingNode {
			ly.walk(val, path)
		}
	}
}

func (ly *layer) addIncludes(val *yaml.Node) {
	items := []*yaml.Node{val}
	if val.Kind == yaml.SequenceNode {
		items = val.Content
	}
	for _, item := range items {
		if item.Kind == yaml.ScalarNode {
			ly.includes = append(ly.includes, includeRef{target: item.Value, at: ly.at(item)})
		}
	}
}

// resolveFile returns the absolute, symlink-free form of path so the same
// file reached two ways is only loaded once.
func resolveFile(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", path, err)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real, nil
	}
	return abs, nil
}

// includeTargets resolves an include relative to the including file. A
// directory expands to its .yaml/.yml files in name order, which lets users
// split overrides into numbered drop-ins.
func includeTargets(from, target string) ([]string, error) {
	if target == "" {
		return nil, fmt.Errorf("path is empty")
	}
	path := expandHome(target)
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(from), path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(ent.Name())) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(path, ent.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
