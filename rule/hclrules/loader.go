// Package hclrules reads rule-sets from HCL files.
//
// A file holds any number of ruleset blocks:
//
//	ruleset "case-management" {
//	  cardinality "stage-out" {
//	    role      = "stage"
//	    edge      = "sequence"
//	    direction = "outgoing"
//	    max       = 1
//	  }
//	  connection "sequence-flow" {
//	    edge = "sequence"
//	    permit {
//	      from = "stage"
//	      to   = "stage"
//	    }
//	  }
//	  acyclic "no-loops" {
//	    edge = "sequence"
//	  }
//	}
//
// Within a set, cardinality rules are evaluated first, then connection rules,
// then acyclic rules, each kind in file order.
package hclrules

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"go.uber.org/zap"

	"github.com/meikuraledutech/diagram/rule"
)

type fileRoot struct {
	RuleSets []*ruleSetBlock `hcl:"ruleset,block"`
}

type ruleSetBlock struct {
	Name        string              `hcl:"name,label"`
	Cardinality []*cardinalityBlock `hcl:"cardinality,block"`
	Connection  []*connectionBlock  `hcl:"connection,block"`
	Acyclic     []*acyclicBlock     `hcl:"acyclic,block"`
}

type cardinalityBlock struct {
	Name      string `hcl:"name,label"`
	Role      string `hcl:"role"`
	Edge      string `hcl:"edge,optional"`
	Direction string `hcl:"direction"`
	Min       *int   `hcl:"min,optional"`
	Max       *int   `hcl:"max,optional"`
}

type connectionBlock struct {
	Name   string         `hcl:"name,label"`
	Edge   string         `hcl:"edge"`
	Permit []*permitBlock `hcl:"permit,block"`
}

type permitBlock struct {
	From string `hcl:"from"`
	To   string `hcl:"to"`
}

type acyclicBlock struct {
	Name string `hcl:"name,label"`
	Edge string `hcl:"edge,optional"`
}

// Loader parses HCL rule files into rule-sets keyed by name.
type Loader struct {
	log *zap.Logger
}

// NewLoader returns a Loader. A nil logger discards output.
func NewLoader(log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{log: log}
}

// Load reads every path. Directories are walked for *.hcl files.
// A rule-set name may only be defined once across all files.
func (l *Loader) Load(paths ...string) (map[string]*rule.Set, error) {
	files, err := findHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	l.log.Debug("discovered rule files", zap.Int("count", len(files)))

	sets := make(map[string]*rule.Set)
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("hclrules: read %s: %w", file, err)
		}
		if err := l.parseInto(sets, file, src); err != nil {
			return nil, err
		}
	}
	l.log.Info("loaded rule-sets", zap.Int("count", len(sets)))
	return sets, nil
}

// Parse reads rule-sets from src; filename is used in diagnostics only.
func (l *Loader) Parse(filename string, src []byte) (map[string]*rule.Set, error) {
	sets := make(map[string]*rule.Set)
	if err := l.parseInto(sets, filename, src); err != nil {
		return nil, err
	}
	return sets, nil
}

func (l *Loader) parseInto(sets map[string]*rule.Set, filename string, src []byte) error {
	// hclparse.Parser caches files by name, so every parse gets its own.
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return fmt.Errorf("hclrules: parse %s: %w", filename, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return fmt.Errorf("hclrules: decode %s: %w", filename, diags)
	}

	for _, block := range root.RuleSets {
		if _, dup := sets[block.Name]; dup {
			return fmt.Errorf("hclrules: %s: rule-set %q defined twice", filename, block.Name)
		}
		set, err := translate(block)
		if err != nil {
			return fmt.Errorf("hclrules: %s: %w", filename, err)
		}
		sets[set.Name] = set
		l.log.Debug("rule-set decoded",
			zap.String("file", filename),
			zap.String("rule_set", set.Name),
			zap.Int("rules", len(set.Rules)),
		)
	}
	return nil
}

func translate(b *ruleSetBlock) (*rule.Set, error) {
	set := rule.NewSet(b.Name)
	for _, c := range b.Cardinality {
		dir, err := rule.ParseDirection(c.Direction)
		if err != nil {
			return nil, fmt.Errorf("cardinality %q: %w", c.Name, err)
		}
		r := &rule.Cardinality{
			ID:        c.Name,
			Role:      c.Role,
			Edge:      c.Edge,
			Direction: dir,
			Max:       rule.Unbounded,
		}
		if c.Min != nil {
			r.Min = *c.Min
		}
		if c.Max != nil {
			r.Max = *c.Max
		}
		if r.Min < 0 || (r.Max != rule.Unbounded && r.Max < r.Min) {
			return nil, fmt.Errorf("cardinality %q: invalid bounds min=%d max=%d", c.Name, r.Min, r.Max)
		}
		set.Rules = append(set.Rules, r)
	}
	for _, c := range b.Connection {
		if len(c.Permit) == 0 {
			return nil, fmt.Errorf("connection %q: at least one permit block is required", c.Name)
		}
		r := &rule.Connection{ID: c.Name, Edge: c.Edge}
		for _, p := range c.Permit {
			r.Permit = append(r.Permit, rule.Permit{From: p.From, To: p.To})
		}
		set.Rules = append(set.Rules, r)
	}
	for _, a := range b.Acyclic {
		set.Rules = append(set.Rules, &rule.Acyclic{ID: a.Name, Edge: a.Edge})
	}
	return set, nil
}

func findHCLFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("hclrules: stat %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(path) == ".hcl" {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("hclrules: walk %s: %w", p, err)
		}
	}
	return files, nil
}
