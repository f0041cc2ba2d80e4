// Package analysis composes fingerprinting, quota, cache, the capability
// adapters, and the judgment stage into the two-tier quick/deep protocol.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/contextlens/core/internal/models"
	"github.com/contextlens/core/internal/modules/judgment"
	"github.com/contextlens/core/internal/pkg/alert"
	"github.com/contextlens/core/internal/pkg/fingerprint"
	"github.com/contextlens/core/internal/pkg/inflight"
	"github.com/contextlens/core/internal/pkg/quota"
	"github.com/contextlens/core/internal/pkg/verdictcache"
	"go.uber.org/zap"
)

// ErrQuotaExceeded tells the client its daily analysis budget is spent. It is
// a distinct condition from analysis failure and carries no verdict.
var ErrQuotaExceeded = errors.New("daily analysis quota exceeded")

// Judge is the structured-reasoning stage.
type Judge interface {
	Quick(ctx context.Context, in judgment.Input) (*models.QuickVerdict, error)
	Deep(ctx context.Context, in judgment.Input) (*judgment.DeepJudgment, error)
}

// VisionDescriber produces a free-text description of attached media, or ""
// when there is no signal.
type VisionDescriber interface {
	Describe(ctx context.Context, media models.MediaDescriptors, textContext string) string
}

// Searcher returns corroboration candidates, or an empty slice.
type Searcher interface {
	Search(ctx context.Context, text string) []models.SearchResult
}

// QuickRequest is the quick-tier wire input.
type QuickRequest struct {
	ID     string
	Text   string
	Author string
	Scope  string // quota scope, resolved by middleware
}

// DeepRequest is the deep-tier wire input.
type DeepRequest struct {
	ID              string
	Text            string
	Author          string
	Media           models.MediaDescriptors
	CommentExcerpts []string
}

// Orchestrator owns the two-tier analysis lifecycle on the server side.
type Orchestrator struct {
	judge    Judge
	vision   VisionDescriber
	searcher Searcher
	cache    *verdictcache.Cache
	guard    *quota.Guard
	alerts   *alert.Service
	logger   *zap.Logger

	// deepFlights coalesces concurrent deep requests for one fingerprint so
	// duplicate triggers share a single upstream execution.
	deepFlights *inflight.Group[*models.DeepVerdict]
}

// New wires an Orchestrator. alerts may be nil.
func New(judge Judge, vision VisionDescriber, searcher Searcher, cache *verdictcache.Cache, guard *quota.Guard, alerts *alert.Service, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		judge:       judge,
		vision:      vision,
		searcher:    searcher,
		cache:       cache,
		guard:       guard,
		alerts:      alerts,
		logger:      logger,
		deepFlights: inflight.NewGroup[*models.DeepVerdict](),
	}
}

// Quick serves the cheap tier: cache hit → return; miss → quota check →
// quick judgment. Cache hits never touch the quota guard.
func (o *Orchestrator) Quick(ctx context.Context, req QuickRequest) (*models.QuickVerdict, error) {
	fp := fingerprint.Hash(req.Text)

	if deep, ok := o.cache.GetDeep(ctx, fp); ok && deep.Complete() {
		return deep.Quick(), nil
	}
	if v, ok := o.cache.GetQuick(ctx, fp); ok {
		return v, nil
	}

	if !o.guard.Allow(ctx, req.Scope) {
		if o.alerts != nil {
			go o.alerts.ThrottlePush("quota:"+req.Scope, "Quota exhausted",
				fmt.Sprintf("scope %s hit the daily analysis ceiling", req.Scope))
		}
		return nil, ErrQuotaExceeded
	}

	verdict, err := o.judge.Quick(ctx, judgment.Input{Text: req.Text, Author: req.Author})
	if err != nil {
		o.logger.Warn("quick judgment failed", zap.String("content_id", req.ID), zap.Error(err))
		o.notifyJudgmentFailure(err)
		return fallbackQuickVerdict(), nil
	}

	o.cache.PutQuick(ctx, fp, verdict)
	return verdict, nil
}

// Deep serves the full tier. The quota was already charged at quick time for
// this content, so deep escalation never re-checks the guard.
func (o *Orchestrator) Deep(ctx context.Context, req DeepRequest) (*models.DeepVerdict, error) {
	fp := fingerprint.Hash(req.Text)

	if cached, ok := o.cache.GetDeep(ctx, fp); ok && deepCacheUsable(cached, req) {
		return cached, nil
	}

	// The cache is content-keyed, not request-shape-keyed: a richer request
	// (e.g. one that now carries comment excerpts) must not be answered by a
	// leaner cached verdict, so it falls through and re-runs. The flight key
	// carries the same shape discriminator, otherwise an excerpt-bearing
	// request could coalesce onto an in-flight excerpt-less computation.
	key := fp
	if len(req.CommentExcerpts) > 0 {
		key += ":c"
	}

	// The flight outlives any single caller; detach it from the first
	// caller's cancellation so a dropped connection does not fail every
	// coalesced waiter.
	flightCtx := context.WithoutCancel(ctx)
	return o.deepFlights.Do(key, func() (*models.DeepVerdict, error) {
		return o.runDeep(flightCtx, fp, req)
	})
}

func deepCacheUsable(cached *models.DeepVerdict, req DeepRequest) bool {
	if !cached.Complete() {
		return false
	}
	if len(req.CommentExcerpts) > 0 && cached.CommentAnalysis == nil {
		return false
	}
	return true
}

func (o *Orchestrator) runDeep(ctx context.Context, fp string, req DeepRequest) (*models.DeepVerdict, error) {
	visualDesc, results := o.fanOut(ctx, req)

	judged, err := o.judge.Deep(ctx, judgment.Input{
		Text:              req.Text,
		Author:            req.Author,
		VisualDescription: visualDesc,
		SearchResults:     results,
		CommentExcerpts:   req.CommentExcerpts,
	})
	if err != nil {
		o.logger.Warn("deep judgment failed", zap.String("content_id", req.ID), zap.Error(err))
		o.notifyJudgmentFailure(err)
		// Fallback verdicts are complete but low-value; caching one would
		// suppress a real analysis for a whole TTL window.
		return fallbackDeepVerdict(req.Media.Present()), nil
	}

	verdict := mergeVerdict(judged, results, req.Media.Present())
	o.cache.PutDeep(ctx, fp, verdict)
	return verdict, nil
}

// fanOut runs the vision and search adapters in parallel. Both degrade to an
// absent signal on failure, so the join point only ever waits, never fails.
// Added latency is max(visual, search), not their sum.
func (o *Orchestrator) fanOut(ctx context.Context, req DeepRequest) (visualDesc string, results []models.SearchResult) {
	var wg sync.WaitGroup

	if req.Media.Present() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			visualDesc = o.vision.Describe(ctx, req.Media, req.Text)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		results = o.searcher.Search(ctx, req.Text)
	}()

	wg.Wait()
	return visualDesc, results
}

// mergeVerdict attaches the judge's relevance/stance decisions back onto the
// original search results: only results the judge marked relevant survive,
// each carrying its assigned stance.
func mergeVerdict(judged *judgment.DeepJudgment, results []models.SearchResult, hasMedia bool) *models.DeepVerdict {
	verdict := &models.DeepVerdict{
		Overall:            judged.Overall,
		Summary:            judged.Summary,
		Confidence:         judged.Confidence,
		Dimensions:         judged.Dimensions,
		CounterPerspective: judged.CounterPerspective,
		CounterSources:     []models.CounterSource{},
		CommentAnalysis:    judged.CommentAnalysis,
		VisualAssessment:   judged.VisualAssessment,
		HasMedia:           hasMedia,
	}

	for _, src := range judged.Sources {
		if !src.Relevant {
			continue
		}
		r := results[src.Index-1]
		verdict.CounterSources = append(verdict.CounterSources, models.CounterSource{
			Outlet:   r.SourceDomain,
			Headline: r.Title,
			URL:      r.URL,
			Snippet:  r.Snippet,
			Stance:   src.Stance,
		})
	}

	return verdict
}

// QuotaStatus is the read-only usage surface exposed to the UI.
type QuotaStatus struct {
	Limit     int    `json:"limit"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
	ResetsAt  string `json:"resetsAt"`
}

// Quota reports remaining budget for a scope without consuming any.
func (o *Orchestrator) Quota(ctx context.Context, scope string) QuotaStatus {
	remaining := o.guard.Remaining(ctx, scope)
	limit := o.guard.Limit()
	return QuotaStatus{
		Limit:     limit,
		Used:      limit - remaining,
		Remaining: remaining,
		ResetsAt:  o.guard.ResetsAt().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (o *Orchestrator) notifyJudgmentFailure(err error) {
	if o.alerts == nil {
		return
	}
	go o.alerts.ThrottlePush("judgment-failure", "Judgment provider failing", err.Error())
}
