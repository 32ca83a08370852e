// Package summarizer runs the competing keyphrase summarizers over one
// transcript, scores them against reference summaries, and commits
// transcripts into corpus and user frequency scopes.
package summarizer

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/annotation"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/extract"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/frequency"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/ranking"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/stopwords"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/topics"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/idgen"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/pkg/tracing"
)

// Tracker receives analytics events. *analytics.Collector satisfies it.
type Tracker interface {
	Track(event any)
}

type Config struct {
	DefaultCorpus      string
	Language           string
	DefaultTargetCount int
	MaxTargetCount     int
	BlendWeight        float64
	Topics             topics.Params
	TermsPerTopic      int
	// MaxDocuments caps how many corpus documents join an LDA fit.
	MaxDocuments int
	// AsyncCommit reports commits as queued rather than committed.
	AsyncCommit bool
}

// ConfigFrom maps the application config onto the service config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		DefaultCorpus:      cfg.Store.DefaultCorpus,
		Language:           cfg.Annotator.Language,
		DefaultTargetCount: cfg.Ranking.DefaultTargetCount,
		MaxTargetCount:     cfg.Ranking.MaxTargetCount,
		BlendWeight:        cfg.Ranking.BlendWeight,
		Topics: topics.Params{
			Topics:       cfg.Topics.Count,
			Alpha:        cfg.Topics.Alpha,
			Beta:         cfg.Topics.Beta,
			Iterations:   cfg.Topics.Iterations,
			BurnIn:       cfg.Topics.BurnIn,
			ThinInterval: cfg.Topics.ThinInterval,
			SampleLag:    cfg.Topics.SampleLag,
		},
		TermsPerTopic: cfg.Topics.TermsPerTopic,
		MaxDocuments:  cfg.Topics.MaxDocuments,
		AsyncCommit:   cfg.Store.CommitVia == "kafka",
	}
}

type Deps struct {
	Annotator annotation.Annotator
	Stopwords stopwords.Set
	Store     frequency.Store
	Ranker    *ranking.Ranker
	Committer corpus.Committer
	Tracker   Tracker
	Metrics   *metrics.Metrics
}

type Service struct {
	annotator annotation.Annotator
	stop      stopwords.Set
	store     frequency.Store
	scorer    *scoring.Scorer
	ranker    *ranking.Ranker
	committer corpus.Committer
	tracker   Tracker
	metrics   *metrics.Metrics
	cfg       Config
	logger    *slog.Logger
}

func New(deps Deps, cfg Config) *Service {
	if cfg.DefaultTargetCount < 1 {
		cfg.DefaultTargetCount = 10
	}
	if cfg.TermsPerTopic < 1 {
		cfg.TermsPerTopic = 5
	}
	if cfg.Topics.Topics == 0 {
		cfg.Topics = topics.DefaultParams()
	}
	return &Service{
		annotator: deps.Annotator,
		stop:      deps.Stopwords,
		store:     deps.Store,
		scorer:    scoring.NewScorer(deps.Store),
		ranker:    deps.Ranker,
		committer: deps.Committer,
		tracker:   deps.Tracker,
		metrics:   deps.Metrics,
		cfg:       cfg,
		logger:    slog.Default().With("component", "summarizer"),
	}
}

// extraction is everything the extractors produce for one document.
type extraction struct {
	lemmas     extract.FrequencyMap
	candidates extract.FrequencyMap
	entities   extract.FrequencyMap
}

func (s *Service) extractAll(ctx context.Context, doc annotation.Document) (extraction, error) {
	var ex extraction
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		ex.lemmas = extract.MeaningfulLemmas(doc, s.stop)
		return nil
	})
	g.Go(func() error {
		ex.candidates = extract.CandidateTerms(doc, s.stop)
		return nil
	})
	g.Go(func() error {
		ex.entities = extract.NamedEntityFrequencies(extract.NamedEntities(doc))
		return nil
	})
	return ex, g.Wait()
}

// RankKeyphrases runs the hybrid ranker over doc against the default
// corpus. A document without candidate terms or entities yields a single
// degenerate keyphrase holding its whole text.
func (s *Service) RankKeyphrases(ctx context.Context, doc annotation.Document, target int, user *frequency.Scope) ([]ranking.Keyphrase, error) {
	ex, err := s.extractAll(ctx, doc)
	if err != nil {
		return nil, err
	}
	return s.rankHybrid(ctx, ex, doc.Text(), target, frequency.CorpusScope(s.cfg.DefaultCorpus, frequency.FieldTerm), user)
}

// rankHybrid marks the result degenerate only when extraction found no
// candidate terms and no entities. Any other empty ranking is returned as is.
func (s *Service) rankHybrid(ctx context.Context, ex extraction, text string, target int, corpusScope frequency.Scope, user *frequency.Scope) ([]ranking.Keyphrase, error) {
	if target < 1 {
		return nil, apperrors.InvalidParameterf("target count must be positive, got %d", target)
	}
	if len(ex.candidates) == 0 && len(ex.entities) == 0 {
		return []ranking.Keyphrase{{Text: text, Degenerate: true}}, nil
	}
	phrases, err := s.ranker.Rank(ctx, ex.candidates, ex.entities, target, corpusScope, user)
	if err != nil {
		return nil, err
	}
	if phrases == nil {
		phrases = []ranking.Keyphrase{}
	}
	return phrases, nil
}

// SummarizeByTfidf returns the target highest TF-IDF terms of freqs under
// scope.
func (s *Service) SummarizeByTfidf(ctx context.Context, freqs map[string]int, target int, scope frequency.Scope) ([]string, error) {
	return s.scorer.Summarize(ctx, freqs, target, scoring.Options{Corpus: scope})
}

// FitTopics fits an LDA model with topicCount topics over term documents.
// The returned vocabulary maps model indices back to terms.
func (s *Service) FitTopics(docs [][]string, topicCount int) (*topics.Model, *topics.Vocabulary, error) {
	vocab := topics.NewVocabulary()
	encoded := vocab.Encode(docs)
	params := s.cfg.Topics
	params.Topics = topicCount
	start := time.Now()
	model, err := topics.Fit(encoded, vocab.Size(), params)
	if err != nil {
		return nil, nil, err
	}
	s.metrics.ObserveTopicFit(time.Since(start))
	return model, vocab, nil
}

func (s *Service) targetCount(requested int) (int, error) {
	if requested == 0 {
		return s.cfg.DefaultTargetCount, nil
	}
	if requested < 0 {
		return 0, apperrors.InvalidParameterf("target count must be positive, got %d", requested)
	}
	if s.cfg.MaxTargetCount > 0 && requested > s.cfg.MaxTargetCount {
		return 0, apperrors.InvalidParameterf("target count %d exceeds maximum %d", requested, s.cfg.MaxTargetCount)
	}
	return requested, nil
}

func (s *Service) strategies(req Request) ([]string, error) {
	if len(req.Strategies) == 0 {
		out := make([]string, 0, len(Strategies))
		for _, name := range Strategies {
			if name == StrategyTFIUDF && req.UserID == "" {
				continue
			}
			out = append(out, name)
		}
		return out, nil
	}
	out := make([]string, 0, len(req.Strategies))
	for _, name := range Strategies {
		if !slices.Contains(req.Strategies, name) {
			continue
		}
		if name == StrategyTFIUDF && req.UserID == "" {
			return nil, apperrors.InvalidParameterf("strategy %s requires a user", name)
		}
		out = append(out, name)
	}
	for _, name := range req.Strategies {
		if !slices.Contains(Strategies, name) {
			return nil, apperrors.InvalidParameterf("unknown strategy %q", name)
		}
	}
	return out, nil
}

// Summarize annotates the transcript, runs the selected summarizers
// concurrently, and scores each against the request's references. Any
// failing summarizer fails the whole request.
func (s *Service) Summarize(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	target, err := s.targetCount(req.TargetCount)
	if err != nil {
		return nil, err
	}
	names, err := s.strategies(req)
	if err != nil {
		return nil, err
	}
	corpusID := req.CorpusID
	if corpusID == "" {
		corpusID = s.cfg.DefaultCorpus
	}
	language := req.Language
	if language == "" {
		language = s.cfg.Language
	}
	requestID := logger.RequestID(ctx)
	if requestID == "" {
		requestID = idgen.New()
	}

	ctx, span := tracing.StartSpan(ctx, "summarize", requestID)
	defer func() {
		span.End()
		span.Log(log)
	}()

	_, annotateSpan := tracing.StartChildSpan(ctx, "annotate")
	doc, err := s.annotator.Annotate(ctx, req.Text, language)
	annotateSpan.End()
	if err != nil {
		return nil, err
	}
	ex, err := s.extractAll(ctx, doc)
	if err != nil {
		return nil, err
	}
	annotateSpan.SetAttr("tokens", doc.TokenCount())
	log.Debug("transcript extracted",
		"tokens", doc.TokenCount(),
		"lemmas", len(ex.lemmas),
		"candidates", len(ex.candidates),
		"entities", len(ex.entities),
	)

	var user *frequency.Scope
	if req.UserID != "" {
		u := frequency.UserScope(req.UserID, frequency.FieldLemma)
		user = &u
	}
	run := summaryRun{
		ex:     ex,
		text:   req.Text,
		target: target,
		corpus: frequency.CorpusScope(corpusID, frequency.FieldLemma),
		user:   user,
	}

	summaries := make([]Summary, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			began := time.Now()
			sctx, strategySpan := tracing.StartChildSpan(gctx, name)
			summary, err := s.runStrategy(sctx, name, run)
			strategySpan.End()
			elapsed := time.Since(began)
			strategySpan.SetAttr("keyphrases", len(summary.Keyphrases))
			if err != nil {
				s.metrics.ObserveSummary(name, "error", elapsed)
				return fmt.Errorf("%s summary: %w", name, err)
			}
			s.metrics.ObserveSummary(name, "ok", elapsed)
			summary.Strategy = name
			summary.Scores = evaluation.ScoreSummary(summary.Keyphrases, req.References)
			summary.LatencyMs = elapsed.Milliseconds()
			summaries[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("summarization failed", "error", err, "corpus", corpusID)
		return nil, err
	}

	result := &Result{
		RequestID: requestID,
		CorpusID:  corpusID,
		UserID:    req.UserID,
		Tokens:    doc.TokenCount(),
		Summaries: summaries,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	for _, sm := range summaries {
		if len(sm.Ranked) == 1 && sm.Ranked[0].Degenerate {
			result.Degenerate = true
		}
	}
	s.trackSummary(result, len(req.References))
	log.Info("transcript summarized",
		"corpus", corpusID,
		"strategies", len(summaries),
		"degenerate", result.Degenerate,
		"latency_ms", result.LatencyMs,
	)
	return result, nil
}

// summaryRun is the shared input of every strategy for one request.
type summaryRun struct {
	ex     extraction
	text   string
	target int
	corpus frequency.Scope
	user   *frequency.Scope
}

func (s *Service) runStrategy(ctx context.Context, name string, run summaryRun) (Summary, error) {
	switch name {
	case StrategyTFIDF:
		terms, err := s.SummarizeByTfidf(ctx, run.ex.lemmas, run.target, run.corpus)
		return Summary{Keyphrases: terms}, err
	case StrategyTFIUDF:
		terms, err := s.scorer.Summarize(ctx, run.ex.lemmas, run.target, scoring.Options{
			Corpus:      run.corpus,
			User:        run.user,
			BlendWeight: s.cfg.BlendWeight,
		})
		return Summary{Keyphrases: terms}, err
	case StrategyCandidateTFIDF:
		keys, err := s.SummarizeByTfidf(ctx, run.ex.candidates, run.target, run.corpus.WithField(frequency.FieldTerm))
		if err != nil {
			return Summary{}, err
		}
		return Summary{Keyphrases: candidateTexts(keys)}, nil
	case StrategyLDA:
		terms, err := s.topicLabels(ctx, run)
		return Summary{Keyphrases: terms}, err
	case StrategyHybrid:
		var user *frequency.Scope
		if run.user != nil {
			u := run.user.WithField(frequency.FieldTerm)
			user = &u
		}
		ranked, err := s.rankHybrid(ctx, run.ex, run.text, run.target, run.corpus.WithField(frequency.FieldTerm), user)
		if err != nil {
			return Summary{}, err
		}
		texts := make([]string, len(ranked))
		for i, k := range ranked {
			texts[i] = k.Text
		}
		return Summary{Keyphrases: texts, Ranked: ranked}, nil
	default:
		return Summary{}, apperrors.InvalidParameterf("unknown strategy %q", name)
	}
}

// candidateTexts strips the type prefix from ranked candidate keys, keeping
// the first occurrence of each text.
func candidateTexts(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		term, err := extract.ParseKey(key)
		if err != nil {
			continue
		}
		if _, dup := seen[term.Text]; dup {
			continue
		}
		seen[term.Text] = struct{}{}
		out = append(out, term.Text)
	}
	return out
}

// topicLabels fits LDA over a window of corpus documents plus this transcript
// and labels the transcript by its dominant topics, keeping only terms the
// transcript contains.
func (s *Service) topicLabels(ctx context.Context, run summaryRun) ([]string, error) {
	if len(run.ex.lemmas) == 0 {
		return []string{}, nil
	}
	entries, err := s.store.Snapshot(ctx, run.corpus)
	if err != nil {
		return nil, err
	}
	_, docs := frequency.Documents(entries)
	docs = append(fitWindow(docs, s.cfg.MaxDocuments), bagOfWords(run.ex.lemmas))

	model, vocab, err := s.FitTopics(docs, s.cfg.Topics.Topics)
	if err != nil {
		return nil, err
	}
	return topics.Labels(model, vocab, topics.LabelOptions{
		TermsPerTopic: s.cfg.TermsPerTopic,
		Length:        run.target,
		TopicOrder:    model.DominantTopics(len(docs) - 1),
		Keep: func(term string) bool {
			_, ok := run.ex.lemmas[term]
			return ok
		},
	})
}

// fitWindow keeps the last limit-1 documents so the transcript still fits
// under limit. Documents arrive in ID order, which is not recording order once
// keyed commits hash their IDs, so the window is a stable subset rather than
// the newest documents. A limit below one keeps everything.
func fitWindow(docs [][]string, limit int) [][]string {
	if limit > 0 && len(docs) >= limit {
		return docs[len(docs)-limit+1:]
	}
	return docs
}

// bagOfWords repeats each term by its frequency, in term order.
func bagOfWords(freqs extract.FrequencyMap) []string {
	var doc []string
	for _, term := range freqs.Keys() {
		for i := 0; i < freqs[term]; i++ {
			doc = append(doc, term)
		}
	}
	return doc
}

func (s *Service) trackSummary(result *Result, references int) {
	if s.tracker == nil {
		return
	}
	eventType := analytics.EventSummary
	if result.Degenerate {
		eventType = analytics.EventDegenerate
	}
	strategies := make([]analytics.StrategyResult, len(result.Summaries))
	for i, sm := range result.Summaries {
		strategies[i] = analytics.StrategyResult{
			Strategy:   sm.Strategy,
			Keyphrases: sm.Keyphrases,
			Rouge1:     sm.Scores.Rouge1,
			Rouge2:     sm.Scores.Rouge2,
			LatencyMs:  sm.LatencyMs,
		}
	}
	s.tracker.Track(analytics.SummaryEvent{
		Type:       eventType,
		RequestID:  result.RequestID,
		CorpusID:   result.CorpusID,
		UserID:     result.UserID,
		Strategies: strategies,
		References: references,
		LatencyMs:  result.LatencyMs,
		Timestamp:  time.Now().UTC(),
	})
}

// Commit annotates the transcript and records its lemma and typed-term
// frequencies into the corpus scopes, and the user's scopes when a user is
// named. Requests with the same idempotency key map to the same document,
// so retries do not count twice.
func (s *Service) Commit(ctx context.Context, req CommitRequest) (*CommitResult, error) {
	start := time.Now()
	corpusID := req.CorpusID
	if corpusID == "" {
		corpusID = s.cfg.DefaultCorpus
	}
	language := req.Language
	if language == "" {
		language = s.cfg.Language
	}

	doc, err := s.annotator.Annotate(ctx, req.Text, language)
	if err != nil {
		return nil, err
	}
	ex, err := s.extractAll(ctx, doc)
	if err != nil {
		return nil, err
	}

	docID := idgen.New()
	if req.IdempotencyKey != "" {
		docID = idempotentID(corpusID, req.IdempotencyKey)
	}
	terms := committedTerms(ex)
	event := corpus.CommitEvent{
		DocumentID:  docID,
		CorpusID:    corpusID,
		UserID:      req.UserID,
		Lemmas:      ex.lemmas,
		Terms:       terms,
		CommittedAt: time.Now().UTC(),
	}
	if err := s.committer.Commit(ctx, event); err != nil {
		return nil, err
	}

	status := "committed"
	if s.cfg.AsyncCommit {
		status = "queued"
	}
	if s.tracker != nil {
		s.tracker.Track(analytics.CommitEvent{
			Type:       analytics.EventCommit,
			DocumentID: docID,
			CorpusID:   corpusID,
			UserID:     req.UserID,
			Lemmas:     len(ex.lemmas),
			Terms:      len(terms),
			LatencyMs:  time.Since(start).Milliseconds(),
			Timestamp:  time.Now().UTC(),
		})
	}
	return &CommitResult{
		DocumentID: docID,
		CorpusID:   corpusID,
		UserID:     req.UserID,
		Status:     status,
		Lemmas:     len(ex.lemmas),
		Terms:      len(terms),
	}, nil
}

// committedTerms merges candidate terms with named entities stored under
// the ENTITY type, the key the hybrid ranker reads entity IDF from.
func committedTerms(ex extraction) map[string]int {
	terms := make(map[string]int, len(ex.candidates)+len(ex.entities))
	for key, n := range ex.candidates {
		terms[key] = n
	}
	for _, key := range ex.entities.Keys() {
		e, err := extract.ParseEntityKey(key)
		if err != nil {
			continue
		}
		typed := extract.CandidateTerm{Text: e.Text, Type: extract.TypeEntity}.Key()
		if _, ok := terms[typed]; !ok {
			terms[typed] = ex.entities[key]
		}
	}
	return terms
}

// idempotentID derives a stable document ID from the corpus and the
// caller's idempotency key.
func idempotentID(corpusID, key string) string {
	sum := sha256.Sum256([]byte(corpusID + "\x00" + key))
	return fmt.Sprintf("%x", sum[:16])
}
