package masking

import "log/slog"

// Config controls the masking service's behavior.
type Config struct {
	// Enabled gates whether Mask does anything; when false, Mask is a
	// passthrough. Masking failures always redact regardless of this
	// flag (fail-closed).
	Enabled bool
}

// Service redacts direct identifiers from free text before it reaches a
// log line or a persisted error message. Created once at application
// startup (singleton). Thread-safe and stateless aside from its
// compiled patterns.
type Service struct {
	patterns    map[string]*CompiledPattern
	codeMaskers map[string]Masker
	cfg         Config
}

// NewService creates a masking service with every built-in pattern and
// code-based masker compiled and registered eagerly.
func NewService(cfg Config) *Service {
	s := &Service{
		patterns:    make(map[string]*CompiledPattern),
		codeMaskers: make(map[string]Masker),
		cfg:         cfg,
	}

	s.compileBuiltinPatterns()
	s.registerMasker(&DirectIdentifierMasker{})

	slog.Info("masking service initialized",
		"compiled_patterns", len(s.patterns),
		"code_maskers", len(s.codeMaskers),
		"enabled", cfg.Enabled)

	return s
}

// Mask redacts direct identifiers from content. Returns content
// unchanged when masking is disabled or content is empty. On masking
// failure it fails closed, returning a redaction notice rather than
// risking an unmasked leak.
func (s *Service) Mask(content string) string {
	if !s.cfg.Enabled || content == "" {
		return content
	}

	masked, err := s.applyMasking(content)
	if err != nil {
		slog.Error("masking failed, redacting content (fail-closed)", "error", err)
		return "[REDACTED: data masking failure]"
	}
	return masked
}

// applyMasking applies code-based maskers then regex patterns to content.
func (s *Service) applyMasking(content string) (string, error) {
	masked := content

	for _, masker := range s.codeMaskers {
		if masker.AppliesTo(masked) {
			masked = masker.Mask(masked)
		}
	}

	for _, pattern := range s.patterns {
		masked = pattern.Regex.ReplaceAllString(masked, pattern.Replacement)
	}

	return masked, nil
}

func (s *Service) registerMasker(m Masker) {
	s.codeMaskers[m.Name()] = m
}
