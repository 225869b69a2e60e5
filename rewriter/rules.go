package rewriter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidTarget is returned by New when a Target is missing a field the
// rule table needs.
var ErrInvalidTarget = errors.New("invalid rewrite target")

// Target holds the fixed constants the rewrite rules are built from.
type Target struct {
	// Package is the library namespace, e.g. "vuetify".
	Package string `yaml:"package"`
	// PathFragment selects modules installed from the library itself.
	PathFragment string `yaml:"pathFragment"`
	// DistEntry replaces every deep import of Package.
	DistEntry string `yaml:"distEntry"`
	// StylesPath replaces imports of the library's styles entry point.
	StylesPath string `yaml:"stylesPath"`
}

// DefaultTarget is the Vuetify layout the rewriter was written for.
func DefaultTarget() Target {
	return Target{
		Package:      "vuetify",
		PathFragment: "node_modules/vuetify/",
		DistEntry:    "vuetify/dist/vuetify.js",
		StylesPath:   "./assets/vuetify-styles.css",
	}
}

// Validate reports whether every field the rules depend on is set.
func (t Target) Validate() error {
	switch {
	case t.Package == "":
		return fmt.Errorf("%w: package is empty", ErrInvalidTarget)
	case t.PathFragment == "":
		return fmt.Errorf("%w: pathFragment is empty", ErrInvalidTarget)
	case t.DistEntry == "":
		return fmt.Errorf("%w: distEntry is empty", ErrInvalidTarget)
	case t.StylesPath == "":
		return fmt.Errorf("%w: stylesPath is empty", ErrInvalidTarget)
	case strings.ContainsAny(t.DistEntry+t.StylesPath, `"'`+"\n"):
		return fmt.Errorf("%w: replacement paths must not contain quotes or newlines", ErrInvalidTarget)
	}
	return nil
}

// Rule is a literal pattern/replacement pair applied over raw source text.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

// Apply replaces every match of r in code. The bool reports whether any
// match was found.
func (r Rule) Apply(code string) (string, bool) {
	if !r.Pattern.MatchString(code) {
		return code, false
	}
	return r.Pattern.ReplaceAllLiteralString(code, r.Replacement), true
}

// Rule names, as reported in Result.Rules.
const (
	RuleDeepImport = "deep-import"
	RuleStyles     = "styles"
)

// compileRules builds the static table for t. Deep imports collapse onto
// DistEntry; styles imports point at the vendored stylesheet.
func compileRules(t Target) []Rule {
	pkg := regexp.QuoteMeta(t.Package)
	return []Rule{
		{
			Name:        RuleDeepImport,
			Pattern:     regexp.MustCompile(`from\s+["']` + pkg + `/[^"']+["']`),
			Replacement: `from "` + t.DistEntry + `"`,
		},
		{
			Name:        RuleStyles,
			Pattern:     regexp.MustCompile(`import\s+["']` + pkg + `/styles/?["'];?`),
			Replacement: `import '` + t.StylesPath + `';`,
		},
	}
}
