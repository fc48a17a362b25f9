package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"coursequiz/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreQuestionsKeepInsertionOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	texts := []string{"Third alphabetically", "First question", "Second question"}
	for _, text := range texts {
		_, err := store.Questions().CreateQuestion(ctx, &models.Question{
			CourseID:      "c1",
			Type:          models.QuestionTypeEssay,
			Difficulty:    models.DifficultyBeginner,
			Text:          text,
			CorrectAnswer: models.TextKey{Text: "x"},
		})
		require.NoError(t, err)
	}

	questions, err := store.Questions().ListQuestions(ctx, models.QuestionFilter{CourseID: "c1"})
	require.NoError(t, err)
	require.Len(t, questions, 3)
	for i, q := range questions {
		assert.Equal(t, texts[i], q.Text)
	}

	paged, err := store.Questions().ListQuestions(ctx, models.QuestionFilter{CourseID: "c1", Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, "First question", paged[0].Text)
}

func TestMemoryStoreContentHashDeduplicates(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := &models.Question{CourseID: "c1", Type: models.QuestionTypeEssay, Text: "What is recursion?", CorrectAnswer: models.TextKey{}}
	created, err := store.Questions().CreateQuestion(ctx, first)
	require.NoError(t, err)
	require.True(t, created)

	second := &models.Question{CourseID: "c1", Type: models.QuestionTypeEssay, Text: "  WHAT is recursion? ", CorrectAnswer: models.TextKey{}}
	created, err = store.Questions().CreateQuestion(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	otherCourse := &models.Question{CourseID: "c2", Type: models.QuestionTypeEssay, Text: "What is recursion?", CorrectAnswer: models.TextKey{}}
	created, err = store.Questions().CreateQuestion(ctx, otherCourse)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestMemoryStoreWithTxRollsBack(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx Store) error {
		if err := tx.Courses().CreateCourse(ctx, &models.Course{Code: "CS101", Name: "Intro"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	count, err := store.Courses().CountCourses(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	err = store.WithTx(ctx, func(tx Store) error {
		return tx.Courses().CreateCourse(ctx, &models.Course{Code: "CS101", Name: "Intro"})
	})
	require.NoError(t, err)

	count, err = store.Courses().CountCourses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryStoreSessionStateMachine(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	session := &models.QuizSession{StudentID: "u1", CourseID: "c1", Status: models.SessionPending,
		QuestionIDs: models.NewQuestionSet([]string{"q1"})}
	require.NoError(t, store.Sessions().CreateSession(ctx, session))

	require.NoError(t, store.Sessions().StartSession(ctx, session.ID, now))
	assert.ErrorIs(t, store.Sessions().StartSession(ctx, session.ID, now), models.ErrInvalidState)

	require.NoError(t, store.Sessions().CompleteSession(ctx, session.ID, 100, now))
	assert.ErrorIs(t, store.Sessions().CompleteSession(ctx, session.ID, 0, now), models.ErrInvalidState)
	assert.ErrorIs(t, store.Sessions().StartSession(ctx, "missing", now), models.ErrNotFound)

	loaded, err := store.Sessions().GetSessionByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, loaded.Status)
	require.NotNil(t, loaded.Score)
	assert.Equal(t, 100.0, *loaded.Score)
}

func TestMemoryStoreCourseCodeConflict(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Courses().CreateCourse(ctx, &models.Course{Code: "CS101", Name: "Intro"}))
	err := store.Courses().CreateCourse(ctx, &models.Course{Code: "CS101", Name: "Again"})
	assert.ErrorIs(t, err, models.ErrConflict)
}
