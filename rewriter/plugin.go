// Package rewriter rewrites UI-library import specifiers in module source
// text so that a production bundle resolves them.
package rewriter

import (
	"strings"

	"go.uber.org/zap"
)

// PluginName is the name the plugin registers under in a build pipeline.
const PluginName = "vite-plugin-importmap"

// SourceMap is a placeholder for a transform's source map. The rewriter
// never produces one.
type SourceMap struct{}

// Result is what Transform hands back to the pipeline when it has looked at a
// module.
type Result struct {
	Code string
	Map  *SourceMap
	// Inspected is set for library modules that were matched but left as is.
	Inspected bool
	// Rules lists the rules that changed Code, in table order.
	Rules []string
}

// ResolvedConfig is the subset of the resolved build configuration the
// plugin is told about.
type ResolvedConfig struct {
	Root    string
	Mode    string
	OutDir  string
	Command string
}

// Plugin is the import rewriter. It holds no mutable state after New and is
// safe for concurrent use.
type Plugin struct {
	target Target
	rules  []Rule
	logger *zap.Logger
}

type Option func(*Plugin)

// WithLogger sets the logger used by ConfigResolved.
func WithLogger(l *zap.Logger) Option {
	return func(p *Plugin) {
		if l != nil {
			p.logger = l
		}
	}
}

// New compiles the rule table for target.
func New(target Target, opts ...Option) (*Plugin, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	p := &Plugin{
		target: target,
		rules:  compileRules(target),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Default returns a plugin for DefaultTarget.
func Default(opts ...Option) *Plugin {
	p, err := New(DefaultTarget(), opts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Plugin) Name() string { return PluginName }

// ConfigResolved is called once per configuration resolution.
func (p *Plugin) ConfigResolved(cfg ResolvedConfig) {
	p.logger.Info("Import map plugin activated for production build",
		zap.String("plugin", PluginName),
		zap.String("root", cfg.Root),
		zap.String("mode", cfg.Mode))
}

// Transform rewrites code for the module identified by id. A nil Result means
// the module needs no transformation.
//
// Modules installed from the library itself that contain an export are
// reported as inspected and returned unchanged, and no rule runs on them.
func (p *Plugin) Transform(code, id string) *Result {
	if strings.Contains(id, p.target.PathFragment) && strings.Contains(code, "export") {
		return &Result{Code: code, Inspected: true}
	}

	modified, applied := p.Rewrite(code)
	if len(applied) == 0 {
		return nil
	}
	return &Result{Code: modified, Rules: applied}
}

// Rewrite applies every rule in the table to code and returns the new text
// with the names of the rules that matched.
func (p *Plugin) Rewrite(code string) (string, []string) {
	var applied []string
	for _, r := range p.rules {
		var ok bool
		if code, ok = r.Apply(code); ok {
			applied = append(applied, r.Name)
		}
	}
	return code, applied
}
