package extraction

import (
	"cmp"
	"fmt"
	"os"
	"path"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/JaimeStill/bidwatch/internal/cases"
)

// Pattern targets.
const (
	TargetFileName = "file_name"
	TargetFilePath = "file_path"
)

// Pattern is one learned skip rule.
type Pattern struct {
	Name   string `yaml:"name" json:"name"`
	Target string `yaml:"target" json:"target"`
	Expr   string `yaml:"expr" json:"expr"`
	Reason string `yaml:"reason,omitempty" json:"reason,omitempty"`

	re *regexp.Regexp
}

// PatternTable is an immutable, versioned set of skip patterns for documents
// that are never worth extracting (cover sheets, certificates of service).
// Updates go through Merge, which returns a new table.
type PatternTable struct {
	Version  int       `yaml:"version" json:"version"`
	Patterns []Pattern `yaml:"patterns" json:"patterns"`
}

// EmptyPatterns returns a version zero table with no patterns.
func EmptyPatterns() *PatternTable {
	return &PatternTable{}
}

// LoadPatterns reads a pattern table from a YAML file. An empty path yields
// an empty table.
func LoadPatterns(file string) (*PatternTable, error) {
	if file == "" {
		return EmptyPatterns(), nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read patterns %s: %w", file, err)
	}

	return ParsePatterns(data)
}

// ParsePatterns decodes and compiles a YAML pattern table.
func ParsePatterns(data []byte) (*PatternTable, error) {
	var t PatternTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPatterns, err)
	}

	if err := t.compile(); err != nil {
		return nil, err
	}

	return &t, nil
}

// SavePatterns writes t to file, replacing it atomically.
func SavePatterns(file string, t *PatternTable) error {
	data, err := t.Marshal()
	if err != nil {
		return fmt.Errorf("encode patterns: %w", err)
	}

	tmp := file + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write patterns %s: %w", file, err)
	}
	if err := os.Rename(tmp, file); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace patterns %s: %w", file, err)
	}
	return nil
}

// Marshal encodes the table as YAML.
func (t *PatternTable) Marshal() ([]byte, error) {
	return yaml.Marshal(t)
}

// Merge returns a new table holding the union of t and other. Patterns in
// other replace same-named patterns in t. The version is one past the higher
// of the two inputs.
func (t *PatternTable) Merge(other *PatternTable) (*PatternTable, error) {
	byName := make(map[string]Pattern, len(t.Patterns)+len(other.Patterns))
	for _, p := range t.Patterns {
		byName[p.Name] = p
	}
	for _, p := range other.Patterns {
		byName[p.Name] = p
	}

	merged := &PatternTable{
		Version:  max(t.Version, other.Version) + 1,
		Patterns: make([]Pattern, 0, len(byName)),
	}
	for _, p := range byName {
		merged.Patterns = append(merged.Patterns, p)
	}
	slices.SortFunc(merged.Patterns, func(a, b Pattern) int {
		return cmp.Compare(a.Name, b.Name)
	})

	if err := merged.compile(); err != nil {
		return nil, err
	}
	return merged, nil
}

// Match returns the first pattern matching doc. File-name patterns see only
// the base name; file-path patterns see the full stored path.
func (t *PatternTable) Match(doc cases.Document) (Pattern, bool) {
	for _, p := range t.Patterns {
		if p.re == nil {
			continue
		}
		value := doc.FilePath
		if p.Target == TargetFileName {
			value = path.Base(doc.FilePath)
		}
		if p.re.MatchString(value) {
			return p, true
		}
	}
	return Pattern{}, false
}

func (t *PatternTable) compile() error {
	seen := make(map[string]bool, len(t.Patterns))
	for i := range t.Patterns {
		p := &t.Patterns[i]
		if p.Name == "" {
			return fmt.Errorf("%w: pattern %d has no name", ErrInvalidPatterns, i)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate pattern %q", ErrInvalidPatterns, p.Name)
		}
		seen[p.Name] = true

		if p.Target != TargetFileName && p.Target != TargetFilePath {
			return fmt.Errorf("%w: pattern %q has unknown target %q", ErrInvalidPatterns, p.Name, p.Target)
		}

		re, err := regexp.Compile("(?i)" + p.Expr)
		if err != nil {
			return fmt.Errorf("%w: pattern %q: %w", ErrInvalidPatterns, p.Name, err)
		}
		p.re = re
	}
	return nil
}
