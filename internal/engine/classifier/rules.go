package classifier

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Rule excludes every root-relative path its pattern matches.
// Patterns use '/' as the separator and are matched against "/" + path,
// so "**/name" also matches at the root.
type Rule struct {
	Pattern string
	Reason  string
}

// DefaultRules is the fixed exclusion table applied to every build.
var DefaultRules = []Rule{
	{Pattern: "**/__tests__/**", Reason: "test directory"},
	{Pattern: "**/*.test.*", Reason: "test file"},
	{Pattern: "**/*.spec.*", Reason: "test file"},
	{Pattern: "**/*.d.ts", Reason: "type declaration"},
	{Pattern: "**/__mocks__/**", Reason: "mock directory"},
	{Pattern: "**/__integration__/**", Reason: "integration test directory"},
	{Pattern: "**/*.integration.*", Reason: "integration test file"},
	{Pattern: "**/legacyCache.js", Reason: "legacy cache file"},
	{Pattern: "**/.DS_Store", Reason: "OS metadata"},
	{Pattern: "**/Thumbs.db", Reason: "OS metadata"},
}

type compiledRule struct {
	Rule
	g glob.Glob
}

func compileRules(rules []Rule) ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		g, err := glob.Compile(r.Pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("compile exclusion %q: %w", r.Pattern, err)
		}
		out = append(out, compiledRule{Rule: r, g: g})
	}
	return out, nil
}

// ConfiguredRules returns DefaultRules followed by the user patterns.
func ConfiguredRules(patterns []string) []Rule {
	rules := make([]Rule, 0, len(DefaultRules)+len(patterns))
	rules = append(rules, DefaultRules...)
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		rules = append(rules, Rule{Pattern: p, Reason: "configured exclusion"})
	}
	return rules
}

func matchRule(rules []compiledRule, rel string) (Rule, bool) {
	subject := "/" + strings.TrimPrefix(rel, "/")
	for _, r := range rules {
		if r.g.Match(subject) {
			return r.Rule, true
		}
	}
	return Rule{}, false
}
