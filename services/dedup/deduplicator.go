package dedup

import (
	"context"
	"fmt"

	"coursequiz/models"
	"coursequiz/services/similarity"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// SimilarityThreshold is the inclusive cosine similarity at which two
// questions are the same question.
const SimilarityThreshold = 0.90

// QuestionLister is the part of the question repository the deduplicator
// reads from.
type QuestionLister interface {
	ListQuestions(ctx context.Context, filter models.QuestionFilter) ([]*models.Question, error)
}

type Deduplicator struct {
	questions QuestionLister
	oracle    *similarity.Oracle
	vectors   similarity.VectorStore
}

// NewDeduplicator builds a deduplicator. vectors may be nil, in which case
// every existing question is embedded on demand.
func NewDeduplicator(questions QuestionLister, oracle *similarity.Oracle, vectors similarity.VectorStore) *Deduplicator {
	return &Deduplicator{questions: questions, oracle: oracle, vectors: vectors}
}

// Entry is the verdict for one candidate text.
type Entry struct {
	Index     int
	Text      string
	Duplicate *models.Question
	// Vector is the candidate's embedding when one was computed.
	Vector []float32
}

func (e Entry) IsDuplicate() bool {
	return e.Duplicate != nil
}

type FilterResult struct {
	// Entries holds one verdict per candidate, in input order.
	Entries         []Entry
	Survivors       []Entry
	DuplicatesFound int
}

// CandidateVectors maps survivor index to its embedding.
func (r *FilterResult) CandidateVectors() map[int][]float32 {
	vectors := make(map[int][]float32)
	for _, e := range r.Survivors {
		if len(e.Vector) > 0 {
			vectors[e.Index] = e.Vector
		}
	}
	return vectors
}

// FindDuplicate returns the existing question in the course (or the whole
// bank when courseID is empty) that text duplicates, or nil.
func (d *Deduplicator) FindDuplicate(ctx context.Context, text, courseID string) (*models.Question, error) {
	s, err := d.loadScope(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return d.check(ctx, s, 0, text).Duplicate, nil
}

// FilterDuplicates checks each candidate against the bank in order.
func (d *Deduplicator) FilterDuplicates(ctx context.Context, texts []string, courseID string) (*FilterResult, error) {
	s, err := d.loadScope(ctx, courseID)
	if err != nil {
		return nil, err
	}

	result := &FilterResult{Entries: make([]Entry, 0, len(texts))}
	for i, text := range texts {
		entry := d.check(ctx, s, i, text)
		result.Entries = append(result.Entries, entry)
		if entry.IsDuplicate() {
			result.DuplicatesFound++
			log.WithFields(log.Fields{
				"course_id":   courseID,
				"candidate":   i,
				"existing_id": entry.Duplicate.ID,
			}).Info("Candidate question is a duplicate")
			continue
		}
		result.Survivors = append(result.Survivors, entry)
	}

	log.Infof("Deduplicated %d candidates against %d existing questions: %d duplicates",
		len(texts), len(s.questions), result.DuplicatesFound)
	return result, nil
}

// scope is the bank snapshot one call compares against. Existing-question
// vectors are memoized for the lifetime of the call.
type scope struct {
	questions []*models.Question
	vectors   map[string][]float32
	fetched   bool
}

func (d *Deduplicator) loadScope(ctx context.Context, courseID string) (*scope, error) {
	questions, err := d.questions.ListQuestions(ctx, models.QuestionFilter{CourseID: courseID})
	if err != nil {
		return nil, fmt.Errorf("failed to load questions for deduplication: %w", err)
	}
	return &scope{questions: questions, vectors: make(map[string][]float32)}, nil
}

func (d *Deduplicator) check(ctx context.Context, s *scope, index int, text string) Entry {
	entry := Entry{Index: index, Text: text}

	normalized := models.NormalizeText(text)
	for _, existing := range s.questions {
		if models.NormalizeText(existing.Text) == normalized {
			entry.Duplicate = existing
			return entry
		}
	}

	candidate, ok := d.oracle.Embed(ctx, text)
	if !ok {
		return entry
	}
	entry.Vector = candidate

	d.prefetch(ctx, s)
	for _, existing := range s.questions {
		vector, ok := d.vectorFor(ctx, s, existing)
		if !ok {
			continue
		}
		if similarity.CosineSimilarity(candidate, vector) >= SimilarityThreshold {
			entry.Duplicate = existing
			return entry
		}
	}
	return entry
}

// prefetch loads stored vectors for the scope once per call.
func (d *Deduplicator) prefetch(ctx context.Context, s *scope) {
	if s.fetched || d.vectors == nil || len(s.questions) == 0 {
		return
	}
	s.fetched = true

	ids := lo.Map(s.questions, func(q *models.Question, _ int) string { return q.ID })
	stored, err := d.vectors.FetchVectors(ctx, ids)
	if err != nil {
		log.Warnf("Failed to fetch stored question vectors, embedding on demand: %v", err)
		return
	}
	for id, vector := range stored {
		s.vectors[id] = vector
	}
}

func (d *Deduplicator) vectorFor(ctx context.Context, s *scope, q *models.Question) ([]float32, bool) {
	if vector, ok := s.vectors[q.ID]; ok {
		return vector, true
	}

	vector, ok := d.oracle.Embed(ctx, q.Text)
	if !ok {
		return nil, false
	}
	s.vectors[q.ID] = vector

	if d.vectors != nil {
		if err := d.vectors.UpsertVector(ctx, q, vector); err != nil {
			log.Warnf("Failed to store vector for question %s: %v", q.ID, err)
		}
	}
	return vector, true
}
