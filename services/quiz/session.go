package quiz

import (
	"context"
	"encoding/json"
	"fmt"

	"coursequiz/db"
	"coursequiz/models"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const unknownCourseName = "Unknown Course"

func (s *Service) Start(ctx context.Context, userID, sessionID string) (*models.QuizSession, error) {
	log.Infof("Starting quiz session %s", sessionID)

	sessions := s.store.Sessions()
	session, err := s.ownedSession(ctx, sessions, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionPending {
		return nil, fmt.Errorf("%w: Quiz already started or completed", models.ErrInvalidState)
	}

	if err := sessions.StartSession(ctx, sessionID, s.now()); err != nil {
		log.Errorf("Failed to start quiz session %s: %v", sessionID, err)
		return nil, err
	}

	session, err = sessions.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"session_id": sessionID, "status": session.Status}).Info("Quiz session started")
	return session, nil
}

// Retrieve returns the session's questions in their frozen order with the
// answers hidden. Questions deleted since generation are left out.
func (s *Service) Retrieve(ctx context.Context, userID, sessionID string) (*models.QuizSessionView, error) {
	session, err := s.ownedSession(ctx, s.store.Sessions(), userID, sessionID)
	if err != nil {
		return nil, err
	}

	ids := session.QuestionIDs.IDs()
	found, err := s.store.Questions().GetQuestionsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load session questions: %w", err)
	}

	questions := make([]*models.Question, 0, len(ids))
	for _, id := range ids {
		q, ok := found[id]
		if !ok {
			log.Warnf("Quiz session %s references missing question %s", sessionID, id)
			continue
		}
		questions = append(questions, q)
	}
	return newSessionView(session, questions), nil
}

// Submit grades every question of the session, stores one response per
// question and completes the session.
func (s *Service) Submit(ctx context.Context, userID, sessionID string, req *models.SubmitQuizRequest) (*models.QuizResults, error) {
	log.Infof("Starting submission for quiz session %s", sessionID)

	if err := models.Validate(req); err != nil {
		return nil, err
	}

	session, err := s.ownedSession(ctx, s.store.Sessions(), userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionCompleted {
		return nil, fmt.Errorf("%w: Quiz already submitted", models.ErrInvalidState)
	}
	if session.QuestionIDs.IsEmpty() {
		return nil, fmt.Errorf("%w: Quiz session has no questions", models.ErrMalformedSession)
	}

	ids := session.QuestionIDs.IDs()
	found, err := s.store.Questions().GetQuestionsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load session questions: %w", err)
	}
	missing := lo.Filter(ids, func(id string, _ int) bool {
		_, ok := found[id]
		return !ok
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: questions %v no longer exist", models.ErrMalformedSession, missing)
	}

	answers := lo.SliceToMap(req.Answers, func(a models.AnswerSubmission) (string, json.RawMessage) {
		return a.QuestionID, a.Answer
	})

	var earned, total float64
	responses := make([]*models.QuizResponse, 0, len(ids))
	results := &models.QuizResults{SessionID: session.ID, Results: make([]models.QuestionResult, 0, len(ids))}

	for _, id := range ids {
		q := found[id]
		answer, answered := answers[id]
		outcome := s.grader.Grade(ctx, q, answer, answered)

		total += 1.0
		earned += outcome.Points

		stored := answer
		if !answered || len(stored) == 0 {
			stored = json.RawMessage("null")
		}
		responses = append(responses, &models.QuizResponse{
			SessionID:     session.ID,
			QuestionID:    q.ID,
			StudentAnswer: stored,
			IsCorrect:     outcome.IsCorrect,
			PointsEarned:  outcome.Points,
			Feedback:      outcome.Feedback,
		})

		correctAnswer := ""
		if q.CorrectAnswer != nil {
			correctAnswer = q.CorrectAnswer.Raw()
		}
		results.Results = append(results.Results, models.QuestionResult{
			QuestionID:    q.ID,
			QuestionText:  q.Text,
			QuestionType:  q.Type,
			CorrectAnswer: correctAnswer,
			StudentAnswer: stored,
			IsCorrect:     outcome.IsCorrect,
			PointsEarned:  outcome.Points,
			Explanation:   q.Explanation,
			Feedback:      outcome.Feedback,
		})
		if outcome.IsCorrect {
			results.CorrectAnswers++
		}
	}

	score := 0.0
	if total > 0 {
		score = earned / total * 100
	}

	err = s.store.WithTx(ctx, func(tx db.Store) error {
		for _, response := range responses {
			if err := tx.Sessions().CreateResponse(ctx, response); err != nil {
				return fmt.Errorf("failed to store response for question %s: %w", response.QuestionID, err)
			}
		}
		return tx.Sessions().CompleteSession(ctx, session.ID, score, s.now())
	})
	if err != nil {
		log.Errorf("Failed to complete quiz session %s: %v", sessionID, err)
		return nil, err
	}

	results.Score = score
	results.TotalQuestions = len(results.Results)

	log.WithFields(log.Fields{
		"session_id": sessionID,
		"score":      score,
		"correct":    results.CorrectAnswers,
		"total":      results.TotalQuestions,
	}).Info("Quiz session completed")
	return results, nil
}

// History lists the student's sessions, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]*models.HistoryEntry, error) {
	entries, err := s.store.Sessions().ListHistory(ctx, userID)
	if err != nil {
		log.Errorf("Failed to load quiz history for user %s: %v", userID, err)
		return nil, fmt.Errorf("failed to load quiz history: %w", err)
	}

	for _, e := range entries {
		if e.CourseName == "" {
			e.CourseName = unknownCourseName
		}
	}
	return entries, nil
}
