package client

import (
	"context"
	"time"

	"github.com/contextlens/core/internal/models"
	"go.uber.org/zap"
)

// BadgeState is the visual state of a content item's badge. Rendering is the
// embedder's problem; the manager only drives transitions.
type BadgeState int

const (
	BadgeNone BadgeState = iota
	BadgePending
	BadgeError
	BadgeSignal
	BadgeUpgraded
)

// UI receives badge/panel state transitions. All calls happen on the
// manager's run loop goroutine.
type UI interface {
	ShowBadge(id string, state BadgeState, quick *models.QuickVerdict)
	UpgradeBadge(id string, deep *models.DeepVerdict)
	ShowPanel(id string, deep *models.DeepVerdict)
	ShowPanelError(id string, err error)
	ClosePanel(id string)
}

// CommentExtractor re-derives comment excerpts for a content id from current
// page state. Called immediately before a deep request; lazy-loaded replies
// may have appeared since detection.
type CommentExtractor func(id string) []string

// Options tunes the manager.
type Options struct {
	// DebounceDelay batches bursts of detected content into one pass.
	DebounceDelay time.Duration
	// HoverThreshold is how long a hover must be sustained before it
	// escalates to a deep request.
	HoverThreshold time.Duration
}

const (
	defaultDebounceDelay  = 300 * time.Millisecond
	defaultHoverThreshold = 400 * time.Millisecond
)

// Manager owns the per-content analysis lifecycle on the viewer side.
//
// It runs a single cooperative loop: every state mutation happens on the run
// goroutine, commands arrive over a channel, and network calls run off-loop
// and post their results back as commands. That ordering guarantee is what
// makes the dedup invariant hold: at most one quick and one deep request are
// in flight per content id, and a second trigger while one is pending is a
// no-op.
type Manager struct {
	api     AnalysisAPI
	ui      UI
	extract CommentExtractor
	logger  *zap.Logger
	opts    Options

	cmds   chan func()
	done   chan struct{}
	cancel context.CancelFunc
	ctx    context.Context

	records map[string]*record

	pendingDetect []models.ContentRecord
	debounceTimer *time.Timer

	hoverTimers map[string]*time.Timer

	// openPanelID enforces the one-open-panel rule.
	openPanelID string
}

type record struct {
	content models.ContentRecord

	quickPending   bool
	panelRequested bool
}

// NewManager creates a Manager. extract may be nil when the embedder has no
// comment source.
func NewManager(api AnalysisAPI, ui UI, extract CommentExtractor, logger *zap.Logger, opts Options) *Manager {
	if opts.DebounceDelay <= 0 {
		opts.DebounceDelay = defaultDebounceDelay
	}
	if opts.HoverThreshold <= 0 {
		opts.HoverThreshold = defaultHoverThreshold
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		api:         api,
		ui:          ui,
		extract:     extract,
		logger:      logger,
		opts:        opts,
		cmds:        make(chan func(), 64),
		done:        make(chan struct{}),
		cancel:      cancel,
		ctx:         ctx,
		records:     make(map[string]*record),
		hoverTimers: make(map[string]*time.Timer),
	}
	go m.run()
	return m
}

// Close stops the run loop and cancels in-flight requests. Records are
// discarded; nothing outlives the view session.
func (m *Manager) Close() {
	m.cancel()
	close(m.done)
}

func (m *Manager) run() {
	for {
		select {
		case cmd := <-m.cmds:
			cmd()
		case <-m.done:
			return
		}
	}
}

// enqueue posts a command to the run loop, dropping it if the manager closed.
func (m *Manager) enqueue(cmd func()) {
	select {
	case m.cmds <- cmd:
	case <-m.done:
	}
}

// Detect reports newly observed content. Calls are debounced so a burst of
// inserted items becomes one detection pass. Idempotent per id.
func (m *Manager) Detect(items ...models.ContentRecord) {
	m.enqueue(func() {
		m.pendingDetect = append(m.pendingDetect, items...)
		if m.debounceTimer != nil {
			m.debounceTimer.Stop()
		}
		m.debounceTimer = time.AfterFunc(m.opts.DebounceDelay, func() {
			m.enqueue(m.flushDetected)
		})
	})
}

func (m *Manager) flushDetected() {
	batch := m.pendingDetect
	m.pendingDetect = nil
	for _, item := range batch {
		if item.ID == "" || item.Text == "" {
			continue
		}
		if _, seen := m.records[item.ID]; seen {
			continue
		}
		rec := &record{content: item}
		m.records[item.ID] = rec
		m.startQuick(rec)
	}
}

func (m *Manager) startQuick(rec *record) {
	rec.quickPending = true
	m.ui.ShowBadge(rec.content.ID, BadgePending, nil)

	req := QuickRequest{ID: rec.content.ID, Text: rec.content.Text, Author: rec.content.Author}
	go func() {
		verdict, err := m.api.Quick(m.ctx, req)
		m.enqueue(func() { m.finishQuick(rec.content.ID, verdict, err) })
	}()
}

func (m *Manager) finishQuick(id string, verdict *models.QuickVerdict, err error) {
	rec, ok := m.records[id]
	if !ok {
		return
	}
	rec.quickPending = false

	if err != nil {
		m.logger.Debug("quick analysis failed", zap.String("content_id", id), zap.Error(err))
		m.ui.ShowBadge(id, BadgeError, nil)
		return
	}

	rec.content.QuickResult = verdict
	m.ui.ShowBadge(id, BadgeSignal, verdict)

	// Latency hiding: a non-green signal is the one the viewer will likely
	// open, so resolve the deep verdict before they ask.
	if verdict.Overall != models.RatingGreen {
		m.startDeep(rec)
	}
}

// Hover reports the pointer entering a content item's badge. A sustained
// hover escalates to the deep tier.
func (m *Manager) Hover(id string) {
	m.enqueue(func() {
		rec, ok := m.records[id]
		if !ok || rec.content.QuickResult == nil || rec.content.DeepResult != nil || rec.content.DeepPending {
			return
		}
		if _, active := m.hoverTimers[id]; active {
			return
		}
		m.hoverTimers[id] = time.AfterFunc(m.opts.HoverThreshold, func() {
			m.enqueue(func() {
				delete(m.hoverTimers, id)
				if rec, ok := m.records[id]; ok {
					m.startDeep(rec)
				}
			})
		})
	})
}

// HoverEnd cancels a pending hover escalation.
func (m *Manager) HoverEnd(id string) {
	m.enqueue(func() {
		if t, ok := m.hoverTimers[id]; ok {
			t.Stop()
			delete(m.hoverTimers, id)
		}
	})
}

// Click requests the detail panel for a content item, escalating to the deep
// tier first when needed.
func (m *Manager) Click(id string) {
	m.enqueue(func() {
		rec, ok := m.records[id]
		if !ok {
			return
		}
		if rec.content.DeepResult != nil {
			m.openPanel(id, rec.content.DeepResult)
			return
		}
		rec.panelRequested = true
		m.startDeep(rec)
	})
}

// startDeep escalates rec to the deep tier. Caller must be on the run loop.
// A no-op when a deep request is already pending or resolved.
func (m *Manager) startDeep(rec *record) {
	if rec.content.DeepPending || rec.content.DeepResult != nil {
		return
	}
	if rec.content.QuickResult == nil && !rec.quickPending {
		// Deep is an escalation of an existing signal; never the first tier.
		return
	}
	rec.content.DeepPending = true

	// Re-derive excerpts from current page state and keep the larger set;
	// replies may have lazy-loaded since detection.
	if m.extract != nil {
		if fresh := m.extract(rec.content.ID); len(fresh) > len(rec.content.CommentExcerpts) {
			rec.content.CommentExcerpts = fresh
		}
	}

	req := DeepRequest{
		ID:              rec.content.ID,
		Text:            rec.content.Text,
		Author:          rec.content.Author,
		Media:           rec.content.Media,
		CommentExcerpts: rec.content.CommentExcerpts,
	}
	go func() {
		verdict, err := m.api.Deep(m.ctx, req)
		m.enqueue(func() { m.finishDeep(req.ID, verdict, err) })
	}()
}

func (m *Manager) finishDeep(id string, verdict *models.DeepVerdict, err error) {
	rec, ok := m.records[id]
	if !ok {
		return
	}
	rec.content.DeepPending = false

	if err != nil {
		m.logger.Debug("deep analysis failed", zap.String("content_id", id), zap.Error(err))
		// Badge keeps its quick state; only the panel surfaces the failure.
		if rec.panelRequested {
			rec.panelRequested = false
			m.ui.ShowPanelError(id, err)
		}
		return
	}

	rec.content.DeepResult = verdict
	m.ui.UpgradeBadge(id, verdict)
	if rec.panelRequested {
		rec.panelRequested = false
		m.openPanel(id, verdict)
	}
}

func (m *Manager) openPanel(id string, verdict *models.DeepVerdict) {
	if m.openPanelID != "" && m.openPanelID != id {
		m.ui.ClosePanel(m.openPanelID)
	}
	m.openPanelID = id
	m.ui.ShowPanel(id, verdict)
}

// PanelClosed reports that the viewer dismissed the open panel.
func (m *Manager) PanelClosed(id string) {
	m.enqueue(func() {
		if m.openPanelID == id {
			m.openPanelID = ""
		}
	})
}

// Record returns a copy of the tracked state for a content id. Test and
// debugging hook; the zero record and false mean the id is unknown.
func (m *Manager) Record(id string) (models.ContentRecord, bool) {
	type result struct {
		rec models.ContentRecord
		ok  bool
	}
	ch := make(chan result, 1)
	m.enqueue(func() {
		rec, ok := m.records[id]
		if !ok {
			ch <- result{}
			return
		}
		ch <- result{rec: rec.content, ok: true}
	})
	select {
	case r := <-ch:
		return r.rec, r.ok
	case <-m.done:
		return models.ContentRecord{}, false
	}
}
