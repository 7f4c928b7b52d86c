package policy

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/Hacker0x01/h1ql/pkg/ast"
	"github.com/Hacker0x01/h1ql/pkg/restrict"
)

// supportedVersion is the only policy file format version understood.
const supportedVersion = 1

type fileConfig struct {
	Version   int              `koanf:"version"`
	Resources []resourceConfig `koanf:"resources"`
}

type resourceConfig struct {
	Table   string             `koanf:"table"`
	Public  bool               `koanf:"public"`
	Rows    []rowRuleConfig    `koanf:"rows"`
	Columns []columnRuleConfig `koanf:"columns"`
}

type rowRuleConfig struct {
	Name      string `koanf:"name"`
	Predicate string `koanf:"predicate"`
}

type columnRuleConfig struct {
	Column    string `koanf:"column"`
	Predicate string `koanf:"predicate"`
	Redaction string `koanf:"redaction"`
}

// Load reads policy configuration from a YAML file and builds a snapshot.
func Load(path string) (*Snapshot, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load policy file %s: %w", path, err)
	}
	return buildSnapshot(k)
}

// LoadMap builds a snapshot from an in-memory configuration map.
func LoadMap(cfg map[string]any) (*Snapshot, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(cfg, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load policy map: %w", err)
	}
	return buildSnapshot(k)
}

func buildSnapshot(k *koanf.Koanf) (*Snapshot, error) {
	var cfg fileConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode policy config: %w", err)
	}
	if cfg.Version != supportedVersion {
		return nil, &ConflictError{Reason: fmt.Sprintf("unsupported policy version %d", cfg.Version)}
	}

	restrictor := restrict.New()
	entries := make(map[string]*TableEntry, len(cfg.Resources))

	for _, rc := range cfg.Resources {
		if rc.Table == "" {
			return nil, &ConflictError{Reason: "resource without table name"}
		}
		res := ParseResource(rc.Table)
		if res.Column != "" {
			return nil, &ConflictError{Resource: rc.Table, Reason: "column rules belong under their table entry"}
		}
		if _, dup := entries[res.Key()]; dup {
			return nil, &ConflictError{Resource: res.String(), Reason: "duplicate resource entry"}
		}

		entry, err := buildEntry(res, rc, restrictor)
		if err != nil {
			return nil, err
		}
		entries[res.Key()] = entry
	}

	return &Snapshot{version: uuid.NewString(), entries: entries}, nil
}

func buildEntry(res Resource, rc resourceConfig, restrictor *restrict.Restrictor) (*TableEntry, error) {
	// A non-public entry with no row rule can never grant row access;
	// reject it at load time rather than failing every request.
	if rc.Public && len(rc.Rows) > 0 {
		return nil, &ConflictError{Resource: res.String(), Reason: "public resource cannot also carry row rules"}
	}
	if !rc.Public && len(rc.Rows) == 0 {
		return nil, &ConflictError{Resource: res.String(), Reason: "non-public resource has no row rule that could grant access"}
	}

	entry := &TableEntry{Resource: res, Public: rc.Public}

	names := map[string]struct{}{}
	for _, rr := range rc.Rows {
		if rr.Name == "" {
			return nil, &ConflictError{Resource: res.String(), Reason: "row rule without a name"}
		}
		if _, dup := names[rr.Name]; dup {
			return nil, &ConflictError{Resource: res.String(), Reason: fmt.Sprintf("duplicate row rule %q", rr.Name)}
		}
		names[rr.Name] = struct{}{}

		pred, attrs, err := parsePredicate(rr.Predicate, restrictor)
		if err != nil {
			return nil, &ConflictError{
				Resource: res.String(),
				Reason:   fmt.Sprintf("row rule %q has an invalid predicate", rr.Name),
				Err:      err,
			}
		}
		entry.RowRules = append(entry.RowRules, &RowRule{
			Name:       rr.Name,
			Resource:   res,
			Predicate:  pred,
			Attributes: attrs,
			Raw:        rr.Predicate,
		})
	}

	columns := map[string]struct{}{}
	for _, cc := range rc.Columns {
		if cc.Column == "" {
			return nil, &ConflictError{Resource: res.String(), Reason: "column rule without a column name"}
		}
		key := Resource{Table: cc.Column}.Key()
		if _, dup := columns[key]; dup {
			return nil, &ConflictError{Resource: res.WithColumn(cc.Column).String(), Reason: "multiple rules for one column"}
		}
		columns[key] = struct{}{}

		redaction, err := parseRedaction(cc.Redaction)
		if err != nil {
			return nil, &ConflictError{Resource: res.WithColumn(cc.Column).String(), Reason: err.Error()}
		}
		pred, attrs, err := parsePredicate(cc.Predicate, restrictor)
		if err != nil {
			return nil, &ConflictError{
				Resource: res.WithColumn(cc.Column).String(),
				Reason:   "invalid column predicate",
				Err:      err,
			}
		}
		// Omitting a column changes the projection shape, which cannot vary
		// per row. The predicate must depend on the requester alone.
		if redaction == RedactionOmit && referencesColumns(pred) {
			return nil, &ConflictError{
				Resource: res.WithColumn(cc.Column).String(),
				Reason:   "omit redaction requires a predicate over requester attributes only",
			}
		}
		entry.ColumnRules = append(entry.ColumnRules, &ColumnRule{
			Column:     cc.Column,
			Resource:   res.WithColumn(cc.Column),
			Predicate:  pred,
			Redaction:  redaction,
			Attributes: attrs,
			Raw:        cc.Predicate,
		})
	}

	return entry, nil
}

func referencesColumns(e ast.Expr) bool {
	var found bool
	ast.InspectExpr(e, func(node any) bool {
		if _, ok := node.(*ast.ColumnRef); ok {
			found = true
			return false
		}
		return true
	})
	return found
}

func parseRedaction(s string) (Redaction, error) {
	switch s {
	case "", "mask":
		return RedactionMaskNull, nil
	case "omit":
		return RedactionOmit, nil
	default:
		return 0, fmt.Errorf("unknown redaction %q (want mask or omit)", s)
	}
}
