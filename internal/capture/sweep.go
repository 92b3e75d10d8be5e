package capture

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/agentmemory/memoryd/internal/domain/entrytype"
	"github.com/agentmemory/memoryd/internal/domain/scope"
	"github.com/agentmemory/memoryd/internal/embedding"
	"github.com/agentmemory/memoryd/internal/extraction"
	"github.com/agentmemory/memoryd/internal/repository"
	"github.com/agentmemory/memoryd/internal/store/vectorindex"
)

const (
	defaultMinMessages         = 3
	defaultConfidenceThreshold = 0.7
	defaultMaxEntries          = 10
	defaultDuplicateSimilarity = 0.92
)

// SweepConfig holds the missed-extraction sweep's tunables (spec section
// 4.3.3).
type SweepConfig struct {
	MinMessages         int
	ConfidenceThreshold float64
	MaxEntries          int
	DuplicateSimilarity float64
	AutoStore           bool
}

func (c SweepConfig) withDefaults() SweepConfig {
	if c.MinMessages <= 0 {
		c.MinMessages = defaultMinMessages
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = defaultConfidenceThreshold
	}
	if c.MaxEntries <= 0 {
		c.MaxEntries = defaultMaxEntries
	}
	if c.DuplicateSimilarity <= 0 {
		c.DuplicateSimilarity = defaultDuplicateSimilarity
	}
	return c
}

// SweepResult is the shape the session-end sweep always returns (spec
// section 4.3.3), even on partial or total extractor failure.
type SweepResult struct {
	MissedEntries       []MissedEntry
	TotalExtracted      int
	DuplicatesFiltered  int
	BelowThresholdCount int
	ProcessingTimeMs    int64
	Success             bool
	Error               string
}

// MissedEntry is one candidate the sweep decided to keep.
type MissedEntry struct {
	Type       entrytype.Kind
	ID         string // populated only when AutoStore stored it
	Title      string
	Content    string
	Category   string
	Confidence float64
}

// Sweeper runs the session-end missed-extraction sweep.
type Sweeper struct {
	conversations *repository.ConversationRepository
	entries       *repository.EntryRepository
	extractor     extraction.Provider
	embedder      embedding.Provider
	vectors       *vectorindex.Index
	log           *zap.Logger
}

// NewSweeper constructs a Sweeper. vectors may be nil when no embedding
// provider is configured; the duplicate check then falls back to exact
// title matching only.
func NewSweeper(conversations *repository.ConversationRepository, entries *repository.EntryRepository, extractor extraction.Provider, embedder embedding.Provider, vectors *vectorindex.Index, log *zap.Logger) *Sweeper {
	return &Sweeper{conversations: conversations, entries: entries, extractor: extractor, embedder: embedder, vectors: vectors, log: log}
}

// Run executes the sweep for a conversation (spec section 4.3.3). It never
// returns a Go error: extractor or storage failure is reported via
// SweepResult.Success/Error.
func (s *Sweeper) Run(ctx context.Context, conversationID string, sc scope.Scope, agent string, cfg SweepConfig) SweepResult {
	start := time.Now()
	cfg = cfg.withDefaults()

	messages, uerr := s.conversations.Messages(ctx, conversationID)
	if uerr != nil {
		return SweepResult{Success: false, Error: uerr.Error(), ProcessingTimeMs: elapsedMs(start)}
	}
	if len(messages) < cfg.MinMessages {
		return SweepResult{Success: true, ProcessingTimeMs: elapsedMs(start)}
	}

	if !s.extractor.IsAvailable() {
		return SweepResult{Success: false, Error: "no extraction provider configured", ProcessingTimeMs: elapsedMs(start)}
	}

	extractionMessages := make([]extraction.Message, len(messages))
	for i, m := range messages {
		extractionMessages[i] = extraction.Message{Role: string(m.Role), Content: m.Content, CreatedAt: m.CreatedAt}
	}

	candidates, err := s.extractor.ExtractCandidates(ctx, extractionMessages)
	if err != nil {
		return SweepResult{Success: false, Error: err.Error(), ProcessingTimeMs: elapsedMs(start)}
	}

	result := SweepResult{TotalExtracted: len(candidates), Success: true}
	for _, cand := range candidates {
		if cand.Confidence < cfg.ConfidenceThreshold {
			result.BelowThresholdCount++
			continue
		}
		if len(result.MissedEntries) >= cfg.MaxEntries {
			continue
		}
		kind := entrytype.Kind(cand.Type)
		if s.isDuplicate(ctx, kind, cand.Title, cand.Content, sc, cfg.DuplicateSimilarity) {
			result.DuplicatesFiltered++
			continue
		}

		entry := MissedEntry{Type: kind, Title: cand.Title, Content: cand.Content, Category: cand.Category, Confidence: cand.Confidence}
		if cfg.AutoStore {
			if id, storeErr := s.store(ctx, agent, sc, entry); storeErr == nil {
				entry.ID = id
			}
		}
		result.MissedEntries = append(result.MissedEntries, entry)
	}

	result.ProcessingTimeMs = elapsedMs(start)
	return result
}

func (s *Sweeper) isDuplicate(ctx context.Context, kind entrytype.Kind, title, content string, sc scope.Scope, threshold float64) bool {
	row, uerr := s.entries.FindByTitle(ctx, kind, title, sc)
	if uerr == nil && row != nil {
		return true
	}
	if s.embedder == nil || s.vectors == nil || !s.embedder.IsAvailable() {
		return false
	}
	vec, embErr := s.embedder.Embed(ctx, content)
	if embErr != nil {
		return false
	}
	stored, listErr := s.vectors.All(kind)
	if listErr != nil {
		return false
	}
	for _, e := range stored {
		if vectorindex.CosineSimilarity(vec, e.Vector) >= threshold {
			return true
		}
	}
	return false
}

func (s *Sweeper) store(ctx context.Context, agent string, sc scope.Scope, entry MissedEntry) (string, error) {
	now := time.Now().UTC()
	common := entrytype.NewCommon(sc, agent, now)
	switch entry.Type {
	case entrytype.KindGuideline:
		g := &entrytype.Guideline{Common: common, Name: slugify(entry.Title), Content: entry.Content, Category: entrytype.GuidelineCategory(entry.Category), Priority: 50}
		if err := s.entries.CreateGuideline(ctx, agent, g); err != nil {
			return "", err
		}
		return g.ID, nil
	case entrytype.KindTool:
		t := &entrytype.Tool{Common: common, Name: slugify(entry.Title), Description: entry.Content, Category: entrytype.ToolCategory(entry.Category)}
		if err := s.entries.CreateTool(ctx, agent, t); err != nil {
			return "", err
		}
		return t.ID, nil
	case entrytype.KindExperience:
		e := &entrytype.Experience{Common: common, Title: entry.Title, Scenario: entry.Content, Outcome: entrytype.OutcomeSuccess, Category: entry.Category, Confidence: entry.Confidence}
		if err := s.entries.CreateExperience(ctx, agent, e); err != nil {
			return "", err
		}
		return e.ID, nil
	default:
		k := &entrytype.Knowledge{Common: common, Title: entry.Title, Content: entry.Content, Category: entrytype.KnowledgeCategory(entry.Category), Confidence: entry.Confidence}
		if err := s.entries.CreateKnowledge(ctx, agent, k); err != nil {
			return "", err
		}
		return k.ID, nil
	}
}

func elapsedMs(start time.Time) int64 { return time.Since(start).Milliseconds() }
