package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"dirigent/internal/types"
)

// ruleFile is the on-disk YAML shape. Section and layer defaults at the
// file level apply to every entry that does not set its own.
type ruleFile struct {
	Section    string          `yaml:"section"`
	Layers     []string        `yaml:"layers"`
	Directives []ruleDirective `yaml:"directives"`
}

type ruleDirective struct {
	ID            string   `yaml:"id"`
	Text          string   `yaml:"text"`
	Severity      string   `yaml:"severity"`
	Topics        []string `yaml:"topics"`
	Layers        []string `yaml:"layers"`
	Technologies  []string `yaml:"technologies"`
	Section       string   `yaml:"section"`
	Rationale     string   `yaml:"rationale"`
	Example       string   `yaml:"example"`
	AntiPattern   string   `yaml:"antiPattern"`
	Authoritative bool     `yaml:"authoritative"`
}

// LoadRuleFile parses one YAML rule file into directives. Entries
// without an ID get a deterministic one derived from the file name and
// position, so re-imports update rather than duplicate.
func LoadRuleFile(path string) ([]types.Directive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}

	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rule file %s: %w", path, err)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := make([]types.Directive, 0, len(rf.Directives))
	for i, rd := range rf.Directives {
		if strings.TrimSpace(rd.Text) == "" {
			return nil, fmt.Errorf("rule file %s: directive %d has no text", path, i+1)
		}

		id := rd.ID
		if id == "" {
			id = fmt.Sprintf("%s-%03d", stem, i+1)
		}
		section := rd.Section
		if section == "" {
			section = rf.Section
		}
		layerNames := rd.Layers
		if len(layerNames) == 0 {
			layerNames = rf.Layers
		}

		layers, err := normalizeLayers(layerNames)
		if err != nil {
			return nil, fmt.Errorf("rule file %s: directive %s: %w", path, id, err)
		}

		out = append(out, types.Directive{
			ID:            id,
			Text:          rd.Text,
			Severity:      types.ParseSeverity(rd.Severity),
			Topics:        lowerAll(rd.Topics),
			Layers:        layers,
			Technologies:  lowerAll(rd.Technologies),
			Section:       section,
			SourcePath:    path,
			Rationale:     rd.Rationale,
			Example:       rd.Example,
			AntiPattern:   rd.AntiPattern,
			Authoritative: rd.Authoritative,
		})
	}
	return out, nil
}

// LoadRuleDir loads every .yaml/.yml file directly in dir, in name
// order.
func LoadRuleDir(dir string) ([]types.Directive, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read rule directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if isRuleFile(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	var out []types.Directive
	for _, p := range paths {
		directives, err := LoadRuleFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, directives...)
	}
	return out, nil
}

func isRuleFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// normalizeLayers accepts canonical tags ("3-Domain"), bare names
// ("domain"), and the wildcard.
func normalizeLayers(names []string) ([]types.LayerTag, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out := make([]types.LayerTag, 0, len(names))
	for _, name := range names {
		tag, err := normalizeLayer(name)
		if err != nil {
			return nil, err
		}
		out = append(out, tag)
	}
	return out, nil
}

func normalizeLayer(name string) (types.LayerTag, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == string(types.LayerWildcard) {
		return types.LayerWildcard, nil
	}
	lower := strings.ToLower(trimmed)
	for _, l := range types.OrderedLayers {
		full := string(l)
		bare := strings.ToLower(full[strings.Index(full, "-")+1:])
		if lower == strings.ToLower(full) || lower == bare {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown layer %q", name)
}

func lowerAll(ss []string) []string {
	if len(ss) == 0 {
		return nil
	}
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
