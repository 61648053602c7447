// Package extractor implements the two-phase extraction algorithm: a
// values pass, a conditional provenance pass, and a quality-directed
// retry loop that chooses between a surgical (fields-only) retry and a
// full re-issue of the pass prompt.
package extractor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"dario.cat/mergo"
	"github.com/codeready-toolchain/protocolx/pkg/cache"
	"github.com/codeready-toolchain/protocolx/pkg/config"
	"github.com/codeready-toolchain/protocolx/pkg/docstore"
	"github.com/codeready-toolchain/protocolx/pkg/models"
	"github.com/codeready-toolchain/protocolx/pkg/quality"
)

// Result is one module's extraction outcome.
type Result struct {
	Data      map[string]any
	Score     models.QualityScore
	FromCache bool
}

// Extractor runs the two-phase, quality-directed extraction algorithm
// for a single module against a single protocol.
type Extractor struct {
	docstore *docstore.Client
	checker  *quality.Checker
	cache    *cache.Cache
	modules  *config.ModuleRegistry
	retry    config.RetryConfig
}

// New builds an Extractor.
func New(docstoreClient *docstore.Client, checker *quality.Checker, extractionCache *cache.Cache, modules *config.ModuleRegistry, retry config.RetryConfig) *Extractor {
	return &Extractor{
		docstore: docstoreClient,
		checker:  checker,
		cache:    extractionCache,
		modules:  modules,
		retry:    retry,
	}
}

// Input describes the protocol an extraction runs against.
type Input struct {
	ProtocolID   string
	ContentHash  string
	RemoteFileURI string
}

// ExtractWithCache performs a cache lookup before running the retry
// loop. On a cache hit, the stored quality score is reconstructed from
// the envelope's `_metadata.quality_score` sub-object and no LLM calls
// are made.
func (e *Extractor) ExtractWithCache(ctx context.Context, moduleID string, in Input) (Result, error) {
	module, err := e.modules.Get(moduleID)
	if err != nil {
		return Result{}, fmt.Errorf("resolve module %s: %w", moduleID, err)
	}

	promptVersion, err := e.promptVersion(module)
	if err != nil {
		return Result{}, err
	}

	if data, ok := e.cache.Get(ctx, in.ContentHash, moduleID, promptVersion); ok {
		score := scoreFromEnvelope(data)
		return Result{Data: data, Score: score, FromCache: true}, nil
	}

	result, err := e.extract(ctx, moduleID, module, in)
	if err != nil {
		return Result{}, err
	}

	envelope := withEnvelopeScore(result.Data, result.Score)
	if err := e.cache.Set(ctx, in.ContentHash, in.ProtocolID, moduleID, promptVersion, envelope); err != nil {
		// A cache write failure never fails the calling extraction.
		result.Data = envelope
		return result, nil
	}
	result.Data = envelope
	return result, nil
}

// promptVersion hashes the module's pass-1/pass-2 prompt templates and
// schema file together, so any edit to any of them invalidates every
// cache entry keyed against the old text.
func (e *Extractor) promptVersion(module *config.ModuleConfig) (string, error) {
	h := sha256.New()
	for _, path := range []string{module.Pass1PromptPath, module.Pass2PromptPath, module.SchemaPath} {
		raw, err := readFile(path)
		if err != nil {
			return "", err
		}
		h.Write(raw)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (e *Extractor) extract(ctx context.Context, moduleID string, module *config.ModuleConfig, in Input) (Result, error) {
	chain := config.LLMFallbackChain{Primary: module.LLMProvider}

	pass1Start := time.Now()
	pass1Data, pass1Retries, err := e.runPass(ctx, quality.Pass1, moduleID, module, chain, in, "pass1", nil)
	pass1Duration := time.Since(pass1Start)
	if err != nil {
		return Result{}, fmt.Errorf("pass 1 for module %s: %w", moduleID, err)
	}

	pass1Score, err := e.checker.Evaluate(quality.Pass1, moduleID, pass1Data)
	if err != nil {
		return Result{}, fmt.Errorf("evaluate pass 1 for module %s: %w", moduleID, err)
	}

	thresholds := e.checker.Thresholds()
	if pass1Score.Provenance >= thresholds.Provenance {
		pass1Data["_metadata"] = buildMetadata(moduleID, module.InstanceType, pass1Duration, 0, true, pass1Retries, 0)
		return Result{Data: pass1Data, Score: pass1Score}, nil
	}

	pass2Start := time.Now()
	pass2Data, pass2Retries, err := e.runPass(ctx, quality.Combined, moduleID, module, chain, in, "pass2", pass1Data)
	pass2Duration := time.Since(pass2Start)
	if err != nil {
		return Result{}, fmt.Errorf("pass 2 for module %s: %w", moduleID, err)
	}

	pass2Data = preserveIdentityFields(pass1Data, pass2Data, module.IdentityFields)

	finalScore, err := e.checker.Evaluate(quality.Combined, moduleID, pass2Data)
	if err != nil {
		return Result{}, fmt.Errorf("evaluate combined result for module %s: %w", moduleID, err)
	}

	pass2Data["_metadata"] = buildMetadata(moduleID, module.InstanceType, pass1Duration, pass2Duration, false, pass1Retries, pass2Retries)
	return Result{Data: pass2Data, Score: finalScore}, nil
}

// runPass executes one pass's quality-directed retry loop: attempt,
// evaluate, and if thresholds aren't met, retry up to the configured
// bound using either a surgical or full strategy. baseline, when
// non-nil, is pass 1's output substituted into the pass-2 prompt.
func (e *Extractor) runPass(ctx context.Context, pass quality.Pass, moduleID string, module *config.ModuleConfig, chain config.LLMFallbackChain, in Input, passName string, baseline map[string]any) (map[string]any, int, error) {
	promptPath := module.Pass1PromptPath
	if passName == "pass2" {
		promptPath = module.Pass2PromptPath
	}

	maxRetries := e.retry.MaxRetries
	if module.MaxRetries != nil {
		maxRetries = *module.MaxRetries
	}

	var current map[string]any
	var feedback []string
	surgicalRetries := 0

	for attempt := 0; attempt <= maxRetries; attempt++ {
		var data map[string]any
		var err error

		useSurgical := attempt > 0 && current != nil && e.shouldUseSurgical(pass, moduleID, current, feedback)
		if useSurgical {
			data, err = e.surgicalAttempt(ctx, moduleID, module, chain, in, promptPath, baseline, current, feedback)
			if err != nil {
				// Falls back to a full retry on this same attempt if the
				// surgical merge fails to parse or has no effect.
				data, err = e.fullAttempt(ctx, moduleID, chain, in, promptPath, baseline, feedback)
			} else {
				surgicalRetries++
			}
		} else {
			data, err = e.fullAttempt(ctx, moduleID, chain, in, promptPath, baseline, feedback)
		}

		if err != nil {
			// An attempt that threw reverts the next attempt to full
			// retry (no surgical retry on a null baseline).
			current = nil
			feedback = []string{err.Error()}
			continue
		}

		current = enforceIdentityFields(data, baseline, module.IdentityFields)

		score, evalErr := e.checker.Evaluate(pass, moduleID, current)
		if evalErr != nil {
			return nil, surgicalRetries, evalErr
		}
		if e.checker.Passed(pass, score) || attempt == maxRetries {
			return current, surgicalRetries, nil
		}
		feedback = score.Feedback
	}

	return current, surgicalRetries, nil
}

func (e *Extractor) shouldUseSurgical(pass quality.Pass, moduleID string, current map[string]any, feedback []string) bool {
	if len(feedback) == 0 {
		return false
	}
	score, err := e.checker.Evaluate(pass, moduleID, current)
	if err != nil {
		return false
	}
	decision := e.checker.Decide(pass, score, 0, config.RetryConfig{MaxRetries: 1, SurgicalScoreFloor: e.retry.SurgicalScoreFloor, SurgicalSchemaFloor: e.retry.SurgicalSchemaFloor})
	return decision == models.RetryDecisionSurgical
}

func (e *Extractor) fullAttempt(ctx context.Context, moduleID string, chain config.LLMFallbackChain, in Input, promptPath string, baseline map[string]any, feedback []string) (map[string]any, error) {
	vars := map[string]any{
		"ModuleID": moduleID,
		"Pass1":    baseline,
		"Feedback": formatFeedbackDigest(feedback),
	}
	prompt, err := renderPrompt(promptPath, vars)
	if err != nil {
		return nil, err
	}

	text, err := e.docstore.GenerateContent(ctx, chain, in.RemoteFileURI, prompt, "")
	if err != nil {
		return nil, err
	}
	return parseJSONLenient(text)
}

func (e *Extractor) surgicalAttempt(ctx context.Context, moduleID string, module *config.ModuleConfig, chain config.LLMFallbackChain, in Input, promptPath string, baseline, current map[string]any, feedback []string) (map[string]any, error) {
	fields := quality.FailingTopLevelFields(current, feedback)
	if len(fields) == 0 {
		return nil, fmt.Errorf("surgical retry: no failing fields identified")
	}

	vars := map[string]any{
		"ModuleID":      moduleID,
		"Pass1":         baseline,
		"Feedback":      formatFeedbackDigest(feedback),
		"FailingFields": fields,
	}
	prompt, err := renderPrompt(promptPath, vars)
	if err != nil {
		return nil, err
	}

	text, err := e.docstore.GenerateContent(ctx, chain, in.RemoteFileURI, prompt, "")
	if err != nil {
		return nil, err
	}

	partial, err := parseJSONLenient(text)
	if err != nil {
		return nil, err
	}

	merged := cloneMap(current)
	if err := mergo.Merge(&merged, partial, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("surgical merge: %w", err)
	}
	if mapsEqual(merged, current) {
		return nil, fmt.Errorf("surgical retry had no effect")
	}
	return merged, nil
}

func buildMetadata(moduleID, instanceType string, pass1, pass2 time.Duration, skipped bool, pass1Retries, pass2Retries int) map[string]any {
	return map[string]any{
		"module_id":               moduleID,
		"instance_type":           instanceType,
		"pass1_duration_ms":       pass1.Milliseconds(),
		"pass2_duration_ms":       pass2.Milliseconds(),
		"pass2_skipped":           skipped,
		"pass1_surgical_retries":  pass1Retries,
		"pass2_surgical_retries":  pass2Retries,
	}
}

func withEnvelopeScore(data map[string]any, score models.QualityScore) map[string]any {
	meta, _ := data["_metadata"].(map[string]any)
	if meta == nil {
		meta = map[string]any{}
	}
	raw, _ := json.Marshal(score)
	var scoreMap map[string]any
	_ = json.Unmarshal(raw, &scoreMap)
	meta["quality_score"] = scoreMap
	data["_metadata"] = meta
	return data
}

func scoreFromEnvelope(data map[string]any) models.QualityScore {
	var score models.QualityScore
	meta, ok := data["_metadata"].(map[string]any)
	if !ok {
		return score
	}
	raw, ok := meta["quality_score"]
	if !ok {
		return score
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return score
	}
	_ = json.Unmarshal(b, &score)
	return score
}
