package load

import (
	"fmt"
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v2"

	"github.com/argius/stew5/internal/config"
	"github.com/argius/stew5/internal/delim"
)

// Profile is a saved load job read from YAML:
//
//	table: public.orders
//	separator: "\t"
//	header: true
//	columns: [id, customer, total]
//	mode: insert
//	files:
//	  - orders-2024.tsv
//	  - orders-2025.tsv
//
// Relative file paths are resolved against the profile's directory.
type Profile struct {
	Table        string   `yaml:"table"`
	Separator    string   `yaml:"separator"`
	Header       bool     `yaml:"header"`
	Columns      []string `yaml:"columns"`
	Mode         string   `yaml:"mode"`
	StrictQuotes bool     `yaml:"strict_quotes"`
	EmptyAsNull  bool     `yaml:"empty_as_null"`
	Files        []string `yaml:"files"`
}

// LoadProfile reads and validates the profile at path.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	p, err := ParseProfile(data)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i, f := range p.Files {
		if !filepath.IsAbs(f) {
			p.Files[i] = filepath.Join(dir, f)
		}
	}
	return p, nil
}

// ParseProfile decodes and validates a YAML profile. Unknown keys are
// rejected so typos do not silently change a load.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.UnmarshalStrict(data, &p); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	if p.Separator == "" {
		p.Separator = ","
	}
	p.Separator = config.ParseSeparator(p.Separator)

	if p.Table == "" {
		return nil, ErrNoTable
	}
	if len(p.Files) == 0 {
		return nil, fmt.Errorf("no files listed")
	}
	if err := delim.ValidateSeparator(p.Separator); err != nil {
		return nil, err
	}
	if _, err := ParseMode(p.Mode); err != nil {
		return nil, err
	}
	if len(p.Columns) == 0 && !p.Header {
		return nil, ErrNoColumns
	}
	return &p, nil
}

// ImportOptions returns the parser options the profile asks for on top of base.
func (p *Profile) ImportOptions(base ...delim.Option) []delim.Option {
	opts := append([]delim.Option(nil), base...)
	if p.StrictQuotes {
		opts = append(opts, delim.WithStrictQuotes())
	}
	return opts
}
