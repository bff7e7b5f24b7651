package tables

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/planbook/internal/core"
)

//go:embed catalog.yaml
var catalogYAML []byte

type catalogFile struct {
	Sections []catalogSection `yaml:"sections"`
}

type catalogSection struct {
	ID     string         `yaml:"id"`
	Label  string         `yaml:"label"`
	Tables []catalogTable `yaml:"tables"`
}

type catalogTable struct {
	Key                  string          `yaml:"key"`
	Label                string          `yaml:"label"`
	UniqueFields         []string        `yaml:"uniqueFields"`
	PreventDuplicateRows bool            `yaml:"preventDuplicateRows"`
	MaxRows              int             `yaml:"maxRows"`
	MaxRowsMessage       string          `yaml:"maxRowsMessage"`
	FillEmptyWithDash    bool            `yaml:"fillEmptyWithDash"`
	Columns              []catalogColumn `yaml:"columns"`
}

type catalogColumn struct {
	Key     string          `yaml:"key"`
	Label   string          `yaml:"label"`
	Kind    string          `yaml:"kind"`
	Options []catalogOption `yaml:"options"`
	Derive  string          `yaml:"derive"`
}

// catalogOption accepts either a bare string or a {label, value} mapping.
type catalogOption core.Option

func (o *catalogOption) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		o.Label, o.Value = n.Value, n.Value
		return nil
	}
	var opt core.Option
	if err := n.Decode(&opt); err != nil {
		return err
	}
	if opt.Label == "" {
		opt.Label = opt.Value
	}
	*o = catalogOption(opt)
	return nil
}

// Load parses the embedded catalog.
func Load() ([]core.TableDefinition, error) {
	return Parse(bytes.NewReader(catalogYAML))
}

// Parse reads a catalog document and builds its table definitions.
func Parse(r io.Reader) ([]core.TableDefinition, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	var defs []core.TableDefinition
	for _, sec := range file.Sections {
		if sec.ID == "" {
			return nil, errors.New("section without id")
		}
		for _, tbl := range sec.Tables {
			def, err := buildTable(sec, tbl)
			if err != nil {
				return nil, fmt.Errorf("%s/%s: %w", sec.ID, tbl.Key, err)
			}
			defs = append(defs, def)
		}
	}
	return defs, nil
}

func buildTable(sec catalogSection, tbl catalogTable) (core.TableDefinition, error) {
	if tbl.Key == "" {
		return core.TableDefinition{}, errors.New("table without key")
	}
	def := core.TableDefinition{
		Info: core.TableInfo{
			Section:              sec.ID,
			SectionLabel:         labelOr(sec.Label, sec.ID),
			Key:                  tbl.Key,
			Label:                labelOr(tbl.Label, Humanize(tbl.Key)),
			UniqueFields:         tbl.UniqueFields,
			PreventDuplicateRows: tbl.PreventDuplicateRows,
			MaxRows:              tbl.MaxRows,
			MaxRowsMessage:       tbl.MaxRowsMessage,
			FillEmptyWithDash:    tbl.FillEmptyWithDash,
		},
	}

	seen := make(map[string]bool, len(tbl.Columns))
	for _, cc := range tbl.Columns {
		if cc.Key == "" {
			return def, errors.New("column without key")
		}
		if seen[cc.Key] {
			return def, fmt.Errorf("duplicate column %q", cc.Key)
		}
		seen[cc.Key] = true

		kind, err := core.ParseColumnKind(cc.Kind)
		if err != nil {
			return def, fmt.Errorf("column %s: %w", cc.Key, err)
		}
		col := core.Column{
			Key:   cc.Key,
			Label: labelOr(cc.Label, Humanize(cc.Key)),
			Kind:  kind,
		}
		for _, o := range cc.Options {
			col.Options = append(col.Options, core.Option(o))
		}
		if kind == core.KindEnum && len(col.Options) == 0 {
			return def, fmt.Errorf("column %s: enum without options", cc.Key)
		}
		if cc.Derive != "" {
			fn, err := ParseDeriver(cc.Derive)
			if err != nil {
				return def, fmt.Errorf("column %s: %w", cc.Key, err)
			}
			col.Derive = fn
		} else if kind == core.KindDerived {
			return def, fmt.Errorf("column %s: derived column needs a deriver", cc.Key)
		}
		def.Columns = append(def.Columns, col)
	}

	for _, f := range tbl.UniqueFields {
		if !seen[f] {
			return def, fmt.Errorf("unique field %q is not a column", f)
		}
	}
	return def, nil
}

func labelOr(label, fallback string) string {
	if strings.TrimSpace(label) == "" {
		return fallback
	}
	return label
}

// Humanize turns a column key into a title: "risk_id" becomes "Risk Id".
func Humanize(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
