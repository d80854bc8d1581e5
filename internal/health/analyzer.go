package health

// Analyzer runs health rules against a flow context.
type Analyzer struct {
	config *AnalyzerConfig
}

// AnalyzerConfig holds configuration for the analyzer.
type AnalyzerConfig struct {
	// DisabledRules contains rule IDs to skip
	DisabledRules map[string]bool

	// SeverityOverrides changes the default severity of rules
	SeverityOverrides map[string]Severity
}

// NewAnalyzerConfig creates a default configuration.
func NewAnalyzerConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		DisabledRules:     make(map[string]bool),
		SeverityOverrides: make(map[string]Severity),
	}
}

// NewAnalyzer creates a new analyzer with optional configuration.
func NewAnalyzer(config *AnalyzerConfig) *Analyzer {
	if config == nil {
		config = NewAnalyzerConfig()
	}
	if config.DisabledRules == nil {
		config.DisabledRules = make(map[string]bool)
	}
	return &Analyzer{config: config}
}

// Rules returns the enabled rules in id order.
func (a *Analyzer) Rules() []RuleDef {
	all := GetAll()
	rules := make([]RuleDef, 0, len(all))
	for _, rule := range all {
		if a.config.DisabledRules[rule.ID] {
			continue
		}
		rule.Severity = a.severity(rule.ID, rule.Severity)
		rules = append(rules, rule)
	}
	return rules
}

// Analyze runs all enabled rules against the context.
func (a *Analyzer) Analyze(ctx *Context) []Diagnostic {
	if ctx == nil || ctx.Flow == nil {
		return nil
	}

	var diagnostics []Diagnostic
	for _, rule := range a.Rules() {
		diags := rule.Check(ctx)
		for i := range diags {
			diags[i].RuleID = rule.ID
			diags[i].Severity = rule.Severity
		}
		diagnostics = append(diagnostics, diags...)
	}
	return diagnostics
}

func (a *Analyzer) severity(ruleID string, defaultSev Severity) Severity {
	if sev, ok := a.config.SeverityOverrides[ruleID]; ok {
		return sev
	}
	return defaultSev
}

// Disable disables a rule by ID.
func (a *Analyzer) Disable(ruleID string) {
	a.config.DisabledRules[ruleID] = true
}

// Enable enables a previously disabled rule.
func (a *Analyzer) Enable(ruleID string) {
	delete(a.config.DisabledRules, ruleID)
}
