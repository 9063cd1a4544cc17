// File: internal/customrules/customrules.go

// Package customrules compiles declarative rule definitions, from the
// merged configuration or from YAML rule packs, into schemas.Rule
// implementations the registry accepts.
package customrules

import (
	"context"
	"fmt"
	"os"
	"path"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/codewarden/warden-cli/api/schemas"
)

// compiledRule is a pattern rule produced from a CustomRuleDef.
type compiledRule struct {
	meta    schemas.RuleMeta
	pattern *regexp.Regexp
	globs   []string
	def     schemas.CustomRuleDef
}

func (c *compiledRule) Meta() schemas.RuleMeta { return c.meta }

func (c *compiledRule) Check(ctx context.Context, rc *schemas.RuleContext) ([]schemas.Violation, error) {
	if !c.matchesFile(rc.FilePath) {
		return nil, nil
	}

	var violations []schemas.Violation
	line := 1
	start := 0
	content := rc.Content
	for start <= len(content) {
		end := len(content)
		for i := start; i < len(content); i++ {
			if content[i] == '\n' {
				end = i
				break
			}
		}
		text := content[start:end]
		if loc := c.pattern.FindStringIndex(text); loc != nil {
			violations = append(violations, schemas.Violation{
				Line:        line,
				Column:      loc[0] + 1,
				Snippet:     text,
				Suggestion:  c.def.Suggestion,
				Explanation: c.explanation(),
			})
		}
		start = end + 1
		line++
	}
	return violations, nil
}

func (c *compiledRule) matchesFile(filePath string) bool {
	if len(c.globs) == 0 {
		return true
	}
	base := path.Base(filePath)
	for _, glob := range c.globs {
		if ok, _ := path.Match(glob, base); ok {
			return true
		}
	}
	return false
}

func (c *compiledRule) explanation() string {
	if c.def.Explanation != "" {
		return c.def.Explanation
	}
	return fmt.Sprintf("Matched custom rule pattern %q.", c.def.Pattern)
}

// Compile turns one definition into a Rule. Invalid definitions are rejected
// with an error naming the offending field; nothing reaches the registry.
func Compile(def schemas.CustomRuleDef) (schemas.Rule, error) {
	if def.Pattern == "" {
		return nil, fmt.Errorf("custom rule %q is missing required field %q", def.ID, "pattern")
	}
	pattern, err := regexp.Compile(def.Pattern)
	if err != nil {
		return nil, fmt.Errorf("custom rule %q has invalid pattern: %w", def.ID, err)
	}
	if def.Suggestion == "" {
		return nil, fmt.Errorf("custom rule %q is missing required field %q", def.ID, "suggestion")
	}

	category, err := schemas.ParseCategory(def.Category)
	if err != nil {
		return nil, fmt.Errorf("custom rule %q has invalid category: %w", def.ID, err)
	}
	severity, err := schemas.ParseSeverity(def.Severity)
	if err != nil {
		return nil, fmt.Errorf("custom rule %q has invalid severity: %w", def.ID, err)
	}

	for _, glob := range def.FileGlobs {
		if _, err := path.Match(glob, "probe"); err != nil {
			return nil, fmt.Errorf("custom rule %q has invalid file glob %q", def.ID, glob)
		}
	}

	meta := schemas.RuleMeta{
		ID:          def.ID,
		Name:        def.Name,
		Category:    category,
		Severity:    severity,
		Description: def.Description,
		Frameworks:  def.Frameworks,
		Tags:        def.Tags,
	}
	// Identity checks are delegated to the shared metadata validation so
	// registration and compilation report identical errors.
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	return &compiledRule{meta: meta, pattern: pattern, globs: def.FileGlobs, def: def}, nil
}

// CompileAll compiles every definition, stopping at the first failure.
func CompileAll(defs []schemas.CustomRuleDef) ([]schemas.Rule, error) {
	out := make([]schemas.Rule, 0, len(defs))
	for _, def := range defs {
		rule, err := Compile(def)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}

// rulePack is the YAML document format for rule packs.
type rulePack struct {
	Rules []schemas.CustomRuleDef `yaml:"rules"`
}

// LoadPack reads a YAML rule pack and compiles its definitions. Unlike
// config-layer loading, a broken pack is an explicit input and fails loudly.
func LoadPack(packPath string) ([]schemas.Rule, error) {
	data, err := os.ReadFile(packPath)
	if err != nil {
		return nil, fmt.Errorf("reading rule pack: %w", err)
	}
	var pack rulePack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parsing rule pack %s: %w", packPath, err)
	}
	if len(pack.Rules) == 0 {
		return nil, fmt.Errorf("rule pack %s defines no rules", packPath)
	}
	return CompileAll(pack.Rules)
}
