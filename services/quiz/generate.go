package quiz

import (
	"context"
	"fmt"
	"strings"

	"coursequiz/db"
	"coursequiz/models"
	"coursequiz/services/generator"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// storedQuestion is a question written by this generation together with the
// embedding computed for it during deduplication.
type storedQuestion struct {
	question *models.Question
	vector   []float32
}

// Generate asks the model for questions, merges them into the bank and
// creates a pending session over the resulting question list.
func (s *Service) Generate(ctx context.Context, userID string, req *models.GenerateQuizRequest) (*models.QuizSessionView, error) {
	log.Infof("Starting quiz generation for course %s", req.CourseID)

	if err := models.Validate(req); err != nil {
		log.Errorf("Quiz generation validation failed: %v", err)
		return nil, err
	}
	format, err := models.ParseQuestionType(req.Format)
	if err != nil {
		return nil, err
	}
	difficulty, err := models.ParseDifficulty(req.Difficulty)
	if err != nil {
		return nil, err
	}

	course, err := s.store.Courses().GetCourseByID(ctx, req.CourseID)
	if err != nil {
		log.Errorf("Failed to load course %s: %v", req.CourseID, err)
		return nil, err
	}

	breakdown := normalizeBreakdown(req.MixedConfig)
	result, err := s.generator.Generate(ctx, generator.GenerateRequest{
		CourseName:     course.Name,
		Format:         format,
		Difficulty:     difficulty,
		Count:          req.QuestionCount,
		MixedBreakdown: breakdown,
	})
	if err != nil {
		return nil, err
	}

	texts := lo.Map(result.Drafts, func(d generator.Draft, _ int) string { return strings.TrimSpace(d.Question) })
	filtered, err := s.dedup.FilterDuplicates(ctx, texts, course.ID)
	if err != nil {
		log.Errorf("Deduplication failed for course %s: %v", course.ID, err)
		return nil, err
	}
	candidateVectors := filtered.CandidateVectors()

	var (
		session   *models.QuizSession
		questions []*models.Question
		stored    []storedQuestion
	)
	err = s.store.WithTx(ctx, func(tx db.Store) error {
		questions = make([]*models.Question, 0, len(filtered.Entries))
		stored = stored[:0]
		included := make(map[string]bool, len(filtered.Entries))
		duplicates := filtered.DuplicatesFound

		include := func(q *models.Question) {
			if included[q.ID] {
				return
			}
			included[q.ID] = true
			questions = append(questions, q)
		}

		for _, entry := range filtered.Entries {
			if entry.IsDuplicate() {
				include(entry.Duplicate)
				continue
			}

			question, err := result.Drafts[entry.Index].ToQuestion(course.ID, difficulty)
			if err != nil {
				log.WithFields(log.Fields{"course_id": course.ID, "draft": entry.Index}).
					Warnf("Dropping generated question: %v", err)
				continue
			}
			question.CreatedBy = &userID

			created, err := tx.Questions().CreateQuestion(ctx, question)
			if err != nil {
				return fmt.Errorf("failed to store generated question: %w", err)
			}
			if !created {
				// same normalized text already stored by this batch or a concurrent one
				duplicates++
				existing, err := tx.Questions().GetQuestionByID(ctx, question.ID)
				if err != nil {
					return fmt.Errorf("failed to load existing question %s: %w", question.ID, err)
				}
				include(existing)
				continue
			}

			stored = append(stored, storedQuestion{question: question, vector: candidateVectors[entry.Index]})
			include(question)
		}

		ids := lo.Map(questions, func(q *models.Question, _ int) string { return q.ID })
		session = &models.QuizSession{
			StudentID: userID,
			CourseID:  course.ID,
			Config: models.QuizConfig{
				Format:         format,
				Difficulty:     difficulty,
				QuestionCount:  req.QuestionCount,
				MixedBreakdown: breakdown,
			},
			QuestionIDs:     models.NewQuestionSet(ids),
			DurationMinutes: result.DurationMinutes,
			Status:          models.SessionPending,
		}
		if err := tx.Sessions().CreateSession(ctx, session); err != nil {
			return fmt.Errorf("failed to create quiz session: %w", err)
		}

		entry := &models.AIGenerationLog{
			UserID:             userID,
			CourseID:           course.ID,
			Prompt:             result.Prompt,
			RawResponse:        result.RawResponse,
			QuestionsGenerated: len(result.Drafts),
			QuestionsStored:    len(stored),
			DuplicatesFound:    duplicates,
		}
		if err := tx.GenerationLogs().CreateLog(ctx, entry); err != nil {
			return fmt.Errorf("failed to write generation log: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Errorf("Quiz generation for course %s rolled back: %v", course.ID, err)
		return nil, err
	}

	s.cacheVectors(ctx, stored)

	log.WithFields(log.Fields{
		"session_id": session.ID,
		"course_id":  course.ID,
		"questions":  session.QuestionIDs.Len(),
		"stored":     len(stored),
	}).Info("Quiz session created")
	return newSessionView(session, questions), nil
}

// cacheVectors writes the embeddings of newly stored questions to the
// vector store. Failures only cost a recomputation later.
func (s *Service) cacheVectors(ctx context.Context, stored []storedQuestion) {
	if s.vectors == nil {
		return
	}
	for _, sq := range stored {
		if len(sq.vector) == 0 {
			continue
		}
		if err := s.vectors.UpsertVector(ctx, sq.question, sq.vector); err != nil {
			log.Warnf("Failed to cache vector for question %s: %v", sq.question.ID, err)
		}
	}
}

// normalizeBreakdown rewrites type aliases in a mixed breakdown to their
// canonical names.
func normalizeBreakdown(breakdown map[string]int) map[string]int {
	if len(breakdown) == 0 {
		return nil
	}
	out := make(map[string]int, len(breakdown))
	for name, count := range breakdown {
		t, err := models.ParseQuestionType(name)
		if err != nil {
			continue
		}
		out[string(t)] += count
	}
	return out
}
