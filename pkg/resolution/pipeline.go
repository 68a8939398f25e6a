// Package resolution resolves the transcript document for a calendar event
// through a short-circuiting waterfall: stored decision, direct reference,
// fuzzy candidate search.
package resolution

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/jmespath/go-jmespath"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Ramsey-B/fern/pkg/documents"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Store is the match decision persistence the pipeline reads and writes
type Store interface {
	FindExisting(ctx context.Context, eventID string) (*models.MatchDecision, error)
	Save(ctx context.Context, decision *models.MatchDecision) (*models.MatchDecision, error)
	RejectedDocumentIDs(ctx context.Context, eventID string) ([]string, error)
}

// Deps are the collaborators of a Pipeline
type Deps struct {
	Source   documents.Source
	Resolver documents.URLResolver
	Store    Store
	Ranker   *matching.Ranker
	Notifier events.Notifier
	Logger   ectologger.Logger
}

// Pipeline resolves transcripts for events
type Pipeline struct {
	cfg       Config
	source    documents.Source
	resolver  documents.URLResolver
	store     Store
	ranker    *matching.Ranker
	notifier  events.Notifier
	logger    ectologger.Logger
	textExprs []*jmespath.JMESPath
	urlExprs  []*jmespath.JMESPath
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewPipeline creates a pipeline. It fails only on invalid metadata expressions.
func NewPipeline(cfg Config, deps Deps) (*Pipeline, error) {
	textExprs, err := compileExpressions(cfg.TextExpressions)
	if err != nil {
		return nil, err
	}
	urlExprs, err := compileExpressions(cfg.URLExpressions)
	if err != nil {
		return nil, err
	}

	notifier := deps.Notifier
	if notifier == nil {
		notifier = events.NoopNotifier{}
	}
	resolver := deps.Resolver
	if resolver == nil {
		resolver = documents.ChainResolver{}
	}
	ranker := deps.Ranker
	if ranker == nil {
		ranker = matching.NewRanker(matching.DefaultConfig())
	}

	return &Pipeline{
		cfg:       cfg,
		source:    deps.Source,
		resolver:  resolver,
		store:     deps.Store,
		ranker:    ranker,
		notifier:  notifier,
		logger:    deps.Logger,
		textExprs: textExprs,
		urlExprs:  urlExprs,
		sleep:     sleepContext,
	}, nil
}

// ResolveDocumentForEvent runs the waterfall for one event. Document source
// failures are logged and fall through to the next tier; store failures are
// returned. A nil error always comes with a non-nil Resolution.
func (p *Pipeline) ResolveDocumentForEvent(ctx context.Context, event models.Event) (*models.Resolution, error) {
	ctx, span := tracing.StartSpan(ctx, "resolution.Pipeline.ResolveDocumentForEvent")
	defer span.End()
	span.SetAttributes(attribute.String("event_id", event.ID))

	if event.ID == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "event id is required")
	}

	start := time.Now()
	log := p.logger.WithContext(ctx).WithField("event_id", event.ID)

	res, err := p.resolve(ctx, event, log)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	metrics.ResolutionsTotal.WithLabelValues(string(res.Tier), string(res.Status)).Inc()
	metrics.ResolutionDuration.WithLabelValues(string(res.Tier)).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.String("tier", string(res.Tier)), attribute.String("status", string(res.Status)))

	log.WithFields(map[string]any{
		"tier":        res.Tier,
		"status":      res.Status,
		"document_id": res.DocumentID,
		"score":       res.Score,
	}).Info(res.Reason)

	return res, nil
}

func (p *Pipeline) resolve(ctx context.Context, event models.Event, log ectologger.Logger) (*models.Resolution, error) {
	existing, err := p.store.FindExisting(ctx, event.ID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if text, ok := p.fetchText(ctx, existing.DocumentID); ok {
			return storedResolution(event.ID, existing, text), nil
		}
		log.WithField("document_id", existing.DocumentID).Warn("Stored decision has no retrievable text, continuing waterfall")
	}

	rejected, err := p.store.RejectedDocumentIDs(ctx, event.ID)
	if err != nil {
		return nil, err
	}

	res, err := p.resolveDirect(ctx, event, rejected, log)
	if err != nil || res != nil {
		return res, err
	}

	var current *models.CurrentDecision
	if existing != nil {
		current = existing.ToCurrent()
	}

	return p.resolveFuzzy(ctx, event, current, rejected, log)
}

func (p *Pipeline) resolveDirect(ctx context.Context, event models.Event, rejected []string, log ectologger.Logger) (*models.Resolution, error) {
	ref := extractReference(event.Metadata, event.Description, p.textExprs, p.urlExprs)

	if ref.Text != "" {
		return &models.Resolution{
			EventID: event.ID,
			Status:  models.ResolutionStatusResolved,
			Tier:    models.ResolutionTierDirectReference,
			Text:    ref.Text,
			Method:  models.MatchMethodDirectMetadata,
			Score:   1.0,
			Reason:  "transcript text embedded in event metadata",
		}, nil
	}

	for _, rawURL := range ref.URLs {
		documentID, ok := p.resolver.DocumentIDFromURL(rawURL)
		if !ok {
			log.WithField("url", rawURL).Debug("Reference URL does not resolve to a document")
			continue
		}
		if ectolinq.Contains(rejected, documentID) {
			log.WithField("document_id", documentID).Info("Skipping directly referenced document with a rejected decision")
			continue
		}

		text, ok := p.fetchText(ctx, documentID)
		if !ok {
			continue
		}

		url := rawURL
		saved, err := p.save(ctx, &models.MatchDecision{
			EventID:    event.ID,
			DocumentID: documentID,
			URL:        &url,
			Score:      1.0,
			Method:     models.MatchMethodDirectMetadata,
			Status:     models.MatchDecisionStatusConfirmed,
		})
		if err != nil {
			return nil, err
		}

		return &models.Resolution{
			EventID:        event.ID,
			Status:         models.ResolutionStatusResolved,
			Tier:           models.ResolutionTierDirectReference,
			DocumentID:     documentID,
			URL:            rawURL,
			Text:           text,
			Method:         models.MatchMethodDirectMetadata,
			Score:          1.0,
			DecisionID:     saved.ID,
			DecisionStatus: saved.Status,
			Reason:         fmt.Sprintf("event references document %s", documentID),
		}, nil
	}

	return nil, nil
}

func (p *Pipeline) resolveFuzzy(ctx context.Context, event models.Event, current *models.CurrentDecision, rejected []string, log ectologger.Logger) (*models.Resolution, error) {
	window := SearchWindow(event.End, p.ranker.Config().TimeWindowHours)

	listCtx, cancel := p.callContext(ctx)
	candidates, err := p.source.ListCandidates(listCtx, p.cfg.Folder, window)
	cancel()
	if err != nil {
		metrics.CollaboratorFailuresTotal.WithLabelValues("list").Inc()
		log.WithError(err).Warn("Failed to list transcript candidates")
		return noDocument(event.ID, fmt.Sprintf("document source unavailable: %v", err), nil), nil
	}

	eligible := make([]models.DocumentCandidate, 0, len(candidates))
	for _, c := range candidates {
		if !ectolinq.Contains(rejected, c.ID) {
			eligible = append(eligible, c)
		}
	}

	result := p.ranker.Rank(event, eligible, current)
	metrics.RankingsTotal.WithLabelValues(string(result.Status)).Inc()
	if len(result.Rationale) > 0 {
		metrics.RankingScore.Observe(result.Rationale[0].FinalScore)
	}

	if !result.Status.IsMatch() || result.Candidate == nil {
		return noDocument(event.ID, result.Reason, &result), nil
	}

	candidate := *result.Candidate
	text, ok := p.fetchText(ctx, candidate.ID)
	if !ok {
		return noDocument(event.ID, fmt.Sprintf("matched document %s has no retrievable text", candidate.ID), &result), nil
	}

	decision := &models.MatchDecision{
		EventID:    event.ID,
		DocumentID: candidate.ID,
		Score:      result.Score,
		Method:     models.MatchMethodFuzzySearch,
		Status:     models.MatchDecisionStatusPending,
	}
	if candidate.URL != "" {
		url := candidate.URL
		decision.URL = &url
	}

	saved, err := p.save(ctx, decision)
	if err != nil {
		return nil, err
	}

	return &models.Resolution{
		EventID:        event.ID,
		Status:         models.ResolutionStatusResolved,
		Tier:           models.ResolutionTierFuzzySearch,
		DocumentID:     candidate.ID,
		URL:            candidate.URL,
		Text:           text,
		Method:         saved.Method,
		Score:          result.Score,
		DecisionID:     saved.ID,
		DecisionStatus: saved.Status,
		Reason:         result.Reason,
		Match:          &result,
	}, nil
}

// ResolveBatch resolves events one at a time with the configured pause between
// them. Store failures are reported per item; with stopOnError the first
// failure aborts the rest. Cancelling ctx also aborts.
func (p *Pipeline) ResolveBatch(ctx context.Context, evts []models.Event, stopOnError bool) models.BatchResult {
	ctx, span := tracing.StartSpan(ctx, "resolution.Pipeline.ResolveBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("batch_size", len(evts)))

	result := models.BatchResult{Items: make([]models.BatchItemResult, 0, len(evts))}

	for i, event := range evts {
		if i > 0 && p.cfg.BatchPause > 0 {
			if err := p.sleep(ctx, p.cfg.BatchPause); err != nil {
				result.Aborted = true
				break
			}
		}
		if ctx.Err() != nil {
			result.Aborted = true
			break
		}

		item := models.BatchItemResult{EventID: event.ID}
		res, err := p.ResolveDocumentForEvent(ctx, event)
		switch {
		case err != nil:
			item.Error = err.Error()
			result.Failed++
		case res.Resolved():
			item.Resolution = res
			result.Resolved++
		default:
			item.Resolution = res
			result.NoDocument++
		}
		result.Items = append(result.Items, item)

		if err != nil && stopOnError {
			p.logger.WithContext(ctx).WithError(err).WithField("event_id", event.ID).Warn("Aborting batch after failure")
			result.Aborted = true
			break
		}
	}

	return result
}

// SearchWindow is the candidate listing range for an event ending at end: the
// ranking window widened to cover the whole calendar day of end.
func SearchWindow(end time.Time, windowHours float64) models.TimeRange {
	window := time.Duration(windowHours * float64(time.Hour))
	dayStart := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location())
	dayEnd := dayStart.AddDate(0, 0, 1).Add(-time.Nanosecond)

	from := end.Add(-window)
	if dayStart.Before(from) {
		from = dayStart
	}
	to := end.Add(window)
	if dayEnd.After(to) {
		to = dayEnd
	}
	return models.TimeRange{From: from, To: to}
}

func (p *Pipeline) fetchText(ctx context.Context, documentID string) (string, bool) {
	fetchCtx, cancel := p.callContext(ctx)
	defer cancel()

	text, err := p.source.FetchText(fetchCtx, documentID)
	if err != nil {
		log := p.logger.WithContext(ctx).WithField("document_id", documentID)
		if errors.Is(err, documents.ErrNotFound) {
			log.Debug("Document has no retrievable text")
		} else {
			metrics.CollaboratorFailuresTotal.WithLabelValues("fetch").Inc()
			log.WithError(err).Warn("Failed to fetch document text")
		}
		return "", false
	}
	return text, text != ""
}

func (p *Pipeline) save(ctx context.Context, decision *models.MatchDecision) (*models.MatchDecision, error) {
	saved, err := p.store.Save(ctx, decision)
	if err != nil {
		return nil, err
	}

	metrics.DecisionTransitionsTotal.WithLabelValues(string(saved.Status), string(saved.Method)).Inc()
	if err := p.notifier.DecisionSaved(ctx, saved); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithField("decision_id", saved.ID).Warn("Failed to notify saved decision")
	}
	return saved, nil
}

func (p *Pipeline) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.cfg.CallTimeout)
}

func storedResolution(eventID string, decision *models.MatchDecision, text string) *models.Resolution {
	res := &models.Resolution{
		EventID:        eventID,
		Status:         models.ResolutionStatusResolved,
		Tier:           models.ResolutionTierStoredDecision,
		DocumentID:     decision.DocumentID,
		Text:           text,
		Method:         decision.Method,
		Score:          decision.Score,
		DecisionID:     decision.ID,
		DecisionStatus: decision.Status,
		Reason:         fmt.Sprintf("stored %s decision", decision.Status),
	}
	if decision.URL != nil {
		res.URL = *decision.URL
	}
	return res
}

func noDocument(eventID, reason string, match *models.MatchResult) *models.Resolution {
	return &models.Resolution{
		EventID: eventID,
		Status:  models.ResolutionStatusNoDocument,
		Tier:    models.ResolutionTierNone,
		Reason:  reason,
		Match:   match,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
