// Package judgment wraps the structured-reasoning call that turns content and
// capability signals into a rated verdict. Responses are schema-validated on
// every call: a malformed or out-of-range rating fails the call, it is never
// silently coerced.
package judgment

import (
	"context"
	"fmt"
	"strings"

	appcfg "github.com/contextlens/core/internal/config"
	"github.com/contextlens/core/internal/models"
	"go.uber.org/zap"
)

const (
	quickMaxTokens = 200
	deepMaxTokens  = 1500

	// defaultConfidence substitutes a missing or non-numeric confidence.
	defaultConfidence = 0.7

	// maxCommentHighlights bounds what the model may return; the prompt asks
	// for up to 3 but the cap is enforced here, not trusted.
	maxCommentHighlights = 3
)

// Input carries everything the judgment stage may consider.
type Input struct {
	Text              string
	Author            string
	VisualDescription string
	SearchResults     []models.SearchResult
	CommentExcerpts   []string
}

// SourceAssessment is the judge's relevance/stance decision for one candidate
// search result, referenced by its 1-based position in Input.SearchResults.
type SourceAssessment struct {
	Index    int           `json:"index"`
	Relevant bool          `json:"relevant"`
	Stance   models.Stance `json:"stance"`
}

// DeepJudgment is the deep-tier model output before the orchestrator merges
// source assessments back onto the original search results.
type DeepJudgment struct {
	Overall            models.Rating
	Summary            string
	Confidence         float64
	Dimensions         map[string]models.DimensionRating
	CounterPerspective string
	Sources            []SourceAssessment
	CommentAnalysis    *models.CommentAnalysis
	VisualAssessment   string
}

// Adapter performs quick and deep judgment calls.
type Adapter struct {
	cfg    appcfg.AIConfig
	logger *zap.Logger

	// call is swapped in tests to avoid a live provider.
	call func(ctx context.Context, provider *appcfg.AIProvider, system, prompt string, maxTokens int) (string, error)
}

// New creates a judgment adapter over the configured providers.
func New(cfg appcfg.AIConfig, logger *zap.Logger) *Adapter {
	return &Adapter{cfg: cfg, logger: logger, call: callProvider}
}

func (a *Adapter) provider() (*appcfg.AIProvider, error) {
	provider := selectProvider(a.cfg, a.cfg.Judgment)
	if provider == nil {
		return nil, fmt.Errorf("no enabled judgment provider")
	}
	return provider, nil
}

// Quick produces the cheap text-only signal.
func (a *Adapter) Quick(ctx context.Context, in Input) (*models.QuickVerdict, error) {
	provider, err := a.provider()
	if err != nil {
		return nil, err
	}

	system, prompt := buildQuickPrompt(in)
	raw, err := a.call(ctx, provider, system, prompt, quickMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("quick judgment call: %w", err)
	}
	return parseQuickResponse(raw)
}

// Deep produces the full assessment, including relevance and stance labels
// for every candidate search result.
func (a *Adapter) Deep(ctx context.Context, in Input) (*DeepJudgment, error) {
	provider, err := a.provider()
	if err != nil {
		return nil, err
	}

	system, prompt := buildDeepPrompt(in)
	raw, err := a.call(ctx, provider, system, prompt, deepMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("deep judgment call: %w", err)
	}
	return parseDeepResponse(raw, len(in.SearchResults))
}

type quickResponse struct {
	Overall    string      `json:"overall"`
	Summary    string      `json:"summary"`
	Confidence interface{} `json:"confidence"`
}

func parseQuickResponse(raw string) (*models.QuickVerdict, error) {
	var resp quickResponse
	if err := unmarshalModelJSON(raw, &resp); err != nil {
		return nil, err
	}

	overall := models.Rating(strings.ToLower(strings.TrimSpace(resp.Overall)))
	if !overall.Valid() {
		return nil, fmt.Errorf("invalid overall rating %q", resp.Overall)
	}
	if strings.TrimSpace(resp.Summary) == "" {
		return nil, fmt.Errorf("empty summary in judgment response")
	}

	return &models.QuickVerdict{
		Overall:    overall,
		Summary:    strings.TrimSpace(resp.Summary),
		Confidence: clampConfidence(resp.Confidence),
	}, nil
}

type deepResponse struct {
	Overall    string      `json:"overall"`
	Summary    string      `json:"summary"`
	Confidence interface{} `json:"confidence"`
	Dimensions map[string]struct {
		Rating string `json:"rating"`
		Label  string `json:"label"`
		Reason string `json:"reason"`
	} `json:"dimensions"`
	CounterPerspective string `json:"counterPerspective"`
	Sources            []struct {
		Index    int    `json:"index"`
		Relevant bool   `json:"relevant"`
		Stance   string `json:"stance"`
	} `json:"sources"`
	CommentAnalysis *struct {
		Tone       string `json:"tone"`
		Lean       string `json:"lean"`
		Agreement  string `json:"agreement"`
		Highlights []struct {
			Text      string `json:"text"`
			Sentiment string `json:"sentiment"`
		} `json:"highlights"`
	} `json:"commentAnalysis"`
	VisualAssessment string `json:"visualAssessment"`
}

func parseDeepResponse(raw string, resultCount int) (*DeepJudgment, error) {
	var resp deepResponse
	if err := unmarshalModelJSON(raw, &resp); err != nil {
		return nil, err
	}

	overall := models.Rating(strings.ToLower(strings.TrimSpace(resp.Overall)))
	if !overall.Valid() {
		return nil, fmt.Errorf("invalid overall rating %q", resp.Overall)
	}

	dims := make(map[string]models.DimensionRating, len(models.DimensionNames))
	for _, name := range models.DimensionNames {
		d, ok := resp.Dimensions[name]
		if !ok {
			return nil, fmt.Errorf("missing dimension %q", name)
		}
		rating := models.Rating(strings.ToLower(strings.TrimSpace(d.Rating)))
		if !rating.Valid() {
			return nil, fmt.Errorf("invalid rating %q for dimension %q", d.Rating, name)
		}
		dims[name] = models.DimensionRating{
			Rating: rating,
			Label:  strings.TrimSpace(d.Label),
			Reason: strings.TrimSpace(d.Reason),
		}
	}

	out := &DeepJudgment{
		Overall:            overall,
		Summary:            strings.TrimSpace(resp.Summary),
		Confidence:         clampConfidence(resp.Confidence),
		Dimensions:         dims,
		CounterPerspective: strings.TrimSpace(resp.CounterPerspective),
		VisualAssessment:   strings.TrimSpace(resp.VisualAssessment),
	}
	if out.Summary == "" {
		return nil, fmt.Errorf("empty summary in judgment response")
	}

	for _, src := range resp.Sources {
		if src.Index < 1 || src.Index > resultCount {
			// The model referenced a result it was never shown; drop it.
			continue
		}
		stance := models.Stance(strings.ToLower(strings.TrimSpace(src.Stance)))
		if !stance.Valid() {
			stance = models.StanceNeutral
		}
		out.Sources = append(out.Sources, SourceAssessment{
			Index:    src.Index,
			Relevant: src.Relevant,
			Stance:   stance,
		})
	}

	if resp.CommentAnalysis != nil {
		agreement := models.Agreement(strings.ToLower(strings.TrimSpace(resp.CommentAnalysis.Agreement)))
		switch agreement {
		case models.AgreementStrong, models.AgreementMixed, models.AgreementDisagree, models.AgreementUnclear:
		default:
			agreement = models.AgreementUnclear
		}
		ca := &models.CommentAnalysis{
			Tone:      strings.TrimSpace(resp.CommentAnalysis.Tone),
			Lean:      strings.TrimSpace(resp.CommentAnalysis.Lean),
			Agreement: agreement,
		}
		for _, h := range resp.CommentAnalysis.Highlights {
			if len(ca.Highlights) == maxCommentHighlights {
				break
			}
			if strings.TrimSpace(h.Text) == "" {
				continue
			}
			ca.Highlights = append(ca.Highlights, models.CommentHighlight{
				Text:      strings.TrimSpace(h.Text),
				Sentiment: strings.TrimSpace(h.Sentiment),
			})
		}
		out.CommentAnalysis = ca
	}

	return out, nil
}

// clampConfidence coerces a model-supplied confidence into [0,1], falling back
// to defaultConfidence when missing or non-numeric. Confidence is the one
// field the validation contract allows to be repaired rather than rejected.
func clampConfidence(raw interface{}) float64 {
	value, ok := raw.(float64)
	if !ok {
		return defaultConfidence
	}
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
