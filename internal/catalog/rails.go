package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"bookcrew/internal/platform/googlebooks"
)

const (
	NewReleasesRailID = "new-releases"
	defaultRailMax    = 12
	fallbackQuery     = "subject:fiction"
)

//go:embed rails.yaml
var defaultRailsYAML []byte

// Rail is one configured explore row.
type Rail struct {
	ID          string                   `yaml:"id"`
	Title       string                   `yaml:"title"`
	Description string                   `yaml:"description"`
	Query       string                   `yaml:"query"`
	MaxResults  int                      `yaml:"maxResults"`
	Options     googlebooks.QueryOptions `yaml:"options"`
}

func (r Rail) max() int {
	if r.MaxResults <= 0 {
		return defaultRailMax
	}
	return r.MaxResults
}

// fallbackOptions are used when the rail query returns nothing.
func (r Rail) fallbackOptions() googlebooks.QueryOptions {
	opts := googlebooks.QueryOptions{
		OrderBy:      r.Options.OrderBy,
		LangRestrict: r.Options.LangRestrict,
		PrintType:    googlebooks.PrintTypeBooks,
	}
	if opts.OrderBy == "" {
		opts.OrderBy = googlebooks.OrderRelevance
	}
	if opts.LangRestrict == "" {
		opts.LangRestrict = "en"
	}
	return opts
}

// DefaultRails returns the built-in rail set. It panics if the embedded
// document is malformed.
func DefaultRails() []Rail {
	rails, err := ParseRails(defaultRailsYAML)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded rails: %v", err))
	}
	return rails
}

func ParseRails(data []byte) ([]Rail, error) {
	var rails []Rail
	if err := yaml.Unmarshal(data, &rails); err != nil {
		return nil, fmt.Errorf("parse rails: %w", err)
	}
	if len(rails) == 0 {
		return nil, errors.New("parse rails: no rails defined")
	}

	seen := make(map[string]struct{}, len(rails))
	for i, r := range rails {
		if r.ID == "" || r.Query == "" {
			return nil, fmt.Errorf("parse rails: rail %d needs id and query", i)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("parse rails: duplicate rail id %q", r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return rails, nil
}

// LoadRails reads a rail set from path, or returns the defaults when path is empty.
func LoadRails(path string) ([]Rail, error) {
	if path == "" {
		return DefaultRails(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rails file: %w", err)
	}
	return ParseRails(data)
}
