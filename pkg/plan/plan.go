// Package plan reads batch import plans: which statement files go to which
// profile, and optionally which YNAB account mirrors each profile.
package plan

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/yurifrl/gastos/pkg/models"
)

type YNABConfig struct {
	BudgetID string `yaml:"budget_id"`
	TokenEnv string `yaml:"token_env"`
}

type Plan struct {
	YNAB       YNABConfig  `yaml:"ynab"`
	Statements []Statement `yaml:"statements"`

	dir string
}

// Statement is a file, or a glob of files, imported into one profile.
type Statement struct {
	File    string `yaml:"file"`
	Profile string `yaml:"profile"`
	Account string `yaml:"account"`
}

func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	if len(p.Statements) == 0 {
		return nil, fmt.Errorf("plan has no statements")
	}
	for i, st := range p.Statements {
		if st.File == "" {
			return nil, fmt.Errorf("statement %d has no file", i+1)
		}
		profile, err := models.NormalizeProfile(st.Profile)
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", i+1, err)
		}
		p.Statements[i].Profile = profile
	}
	p.dir = filepath.Dir(path)
	return &p, nil
}

// Files expands the statement pattern. Relative patterns are resolved against
// the directory of the plan file.
func (p *Plan) Files(st Statement) ([]string, error) {
	pattern := st.File
	if !filepath.IsAbs(pattern) && p.dir != "" {
		pattern = filepath.Join(p.dir, pattern)
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", st.File, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files found matching pattern %s", st.File)
	}
	sort.Strings(matches)
	return matches, nil
}

func (p *Plan) Print(w io.Writer) {
	if p.YNAB.BudgetID != "" {
		fmt.Fprintf(w, "YNAB budget: %s\n", p.YNAB.BudgetID)
	}
	for i, st := range p.Statements {
		fmt.Fprintf(w, "[%d] file=%s profile=%s", i+1, st.File, st.Profile)
		if st.Account != "" {
			fmt.Fprintf(w, " account=%s", st.Account)
		}
		fmt.Fprintln(w)
	}
}
