package markup

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/markupsync/internal/platform/authapi"
)

//go:embed sources.yaml
var defaultSourcesYAML []byte

const (
	LookupCRM       = "crm"
	LookupBehaviour = "behaviour"
)

// SourceKind describes one family of markup files: which column carries the customer
// reference, which table resolves it, and how many keys go into one lookup query.
type SourceKind struct {
	Name             string            `yaml:"-"`
	KeyColumn        string            `yaml:"key_column"`
	BatchSize        int               `yaml:"batch_size"`
	Lookup           string            `yaml:"lookup"`
	PlatformPrefixes map[string]string `yaml:"platform_prefixes"`
}

// Prefix is prepended to raw keys before lookup for eshops running on p.
func (k SourceKind) Prefix(p authapi.Platform) string {
	return k.PlatformPrefixes[p.String()]
}

type Sources map[string]SourceKind

// LoadSources reads source kinds from path, or the embedded defaults when path is empty.
func LoadSources(path string) (Sources, error) {
	if strings.TrimSpace(path) == "" {
		return ParseSources(defaultSourcesYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	return ParseSources(data)
}

func ParseSources(data []byte) (Sources, error) {
	var raw map[string]SourceKind
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse sources: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("parse sources: no source kinds defined")
	}
	out := make(Sources, len(raw))
	for name, k := range raw {
		k.Name = name
		if k.KeyColumn == "" {
			return nil, fmt.Errorf("source %q: key_column required", name)
		}
		if k.BatchSize <= 0 {
			return nil, fmt.Errorf("source %q: batch_size must be positive", name)
		}
		switch k.Lookup {
		case LookupCRM, LookupBehaviour:
		default:
			return nil, fmt.Errorf("source %q: unknown lookup %q", name, k.Lookup)
		}
		out[name] = k
	}
	return out, nil
}

func (s Sources) Kind(name string) (SourceKind, error) {
	k, ok := s[name]
	if !ok {
		return SourceKind{}, structural("resolve source kind", fmt.Errorf("unsupported model type %q (known: %s)", name, strings.Join(s.Names(), ", ")))
	}
	return k, nil
}

func (s Sources) Names() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
