package masking

import (
	"log/slog"
	"regexp"
)

// CompiledPattern holds a pre-compiled regex pattern with its replacement.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
	Description string
}

// patternDef is a built-in pattern's source definition before compilation.
type patternDef struct {
	pattern     string
	replacement string
	description string
}

// builtinPatterns are the direct-identifier patterns masked out of any
// log line or persisted error message that may echo back a fragment of
// an extracted protocol value. Protocols occasionally carry real
// subject or investigator PII in free-text fields (amendment sign-offs,
// site contact blocks) even though the extraction modules themselves
// target study-level, not subject-level, data.
var builtinPatterns = map[string]patternDef{
	"email": {
		pattern:     `[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`,
		replacement: "[MASKED_EMAIL]",
		description: "email address",
	},
	"phone": {
		pattern:     `\b(\+?1[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`,
		replacement: "[MASKED_PHONE]",
		description: "phone number",
	},
	"ssn": {
		pattern:     `\b\d{3}-\d{2}-\d{4}\b`,
		replacement: "[MASKED_SSN]",
		description: "US social security number",
	},
}

// compileBuiltinPatterns compiles every built-in pattern. A pattern that
// fails to compile is logged and skipped rather than failing startup.
func (s *Service) compileBuiltinPatterns() {
	for name, def := range builtinPatterns {
		compiled, err := regexp.Compile(def.pattern)
		if err != nil {
			slog.Error("failed to compile built-in masking pattern, skipping",
				"pattern", name, "error", err)
			continue
		}
		s.patterns[name] = &CompiledPattern{
			Name:        name,
			Regex:       compiled,
			Replacement: def.replacement,
			Description: def.description,
		}
	}
}
