package services

import (
	"context"
	"testing"

	"coursequiz/db"
	"coursequiz/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminID = "admin-1"

func newQuestionFixture(t *testing.T) (*QuestionService, *db.MemoryStore, *models.Course) {
	t.Helper()
	store := db.NewMemoryStore()
	course := &models.Course{Code: "DB101", Name: "Databases"}
	require.NoError(t, store.Courses().CreateCourse(context.Background(), course))
	return NewQuestionService(store), store, course
}

func mcqRequest(courseID, text, answer string) *models.CreateQuestionRequest {
	return &models.CreateQuestionRequest{
		CourseID:      courseID,
		Type:          "mcq",
		Difficulty:    "beginner",
		QuestionText:  text,
		CorrectAnswer: answer,
		Explanation:   "B-trees keep keys sorted.",
		Options: []models.OptionInput{
			{Text: "Hash map"},
			{Text: "B-tree"},
			{Text: "Linked list"},
		},
	}
}

func TestCreateQuestion(t *testing.T) {
	ctx := context.Background()
	service, _, course := newQuestionFixture(t)

	q, err := service.CreateQuestion(ctx, adminID, mcqRequest(course.ID, "Which structure backs most indexes?", "b"))
	require.NoError(t, err)

	assert.False(t, q.IsAIGenerated)
	require.NotNil(t, q.CreatedBy)
	assert.Equal(t, adminID, *q.CreatedBy)
	assert.Equal(t, models.LetterKey{Letter: "B"}, q.CorrectAnswer)
	require.Len(t, q.Options, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{q.Options[0].Letter, q.Options[1].Letter, q.Options[2].Letter})
	assert.True(t, q.Options[1].IsCorrect)
	assert.False(t, q.Options[0].IsCorrect)

	stored, err := service.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, q.Text, stored.Text)
}

func TestCreateTrueFalseQuestionDefaultsOptions(t *testing.T) {
	ctx := context.Background()
	service, _, course := newQuestionFixture(t)

	q, err := service.CreateQuestion(ctx, adminID, &models.CreateQuestionRequest{
		CourseID:      course.ID,
		Type:          "tf",
		Difficulty:    "beginner",
		QuestionText:  "A primary key may be NULL.",
		CorrectAnswer: "False",
	})
	require.NoError(t, err)

	assert.Equal(t, models.QuestionTypeTrueFalse, q.Type)
	require.Len(t, q.Options, 2)
	assert.Equal(t, "True", q.Options[0].Text)
	assert.False(t, q.Options[0].IsCorrect)
	assert.True(t, q.Options[1].IsCorrect)
}

func TestCreateQuestionRejects(t *testing.T) {
	ctx := context.Background()
	service, _, course := newQuestionFixture(t)

	_, err := service.CreateQuestion(ctx, adminID, mcqRequest(course.ID, "What does ACID stand for?", "A"))
	require.NoError(t, err)

	essayWithOptions := &models.CreateQuestionRequest{
		CourseID:      course.ID,
		Type:          "essay",
		Difficulty:    "advanced",
		QuestionText:  "Discuss normalization.",
		CorrectAnswer: "Removing redundancy.",
		Options:       []models.OptionInput{{Text: "Yes"}},
	}
	twoCorrect := mcqRequest(course.ID, "Pick one", "A")
	twoCorrect.Options[0].IsCorrect = true
	twoCorrect.Options[1].IsCorrect = true
	tooMany := mcqRequest(course.ID, "Pick one", "A")
	tooMany.Options = append(tooMany.Options, models.OptionInput{Text: "Heap"}, models.OptionInput{Text: "Trie"})

	tests := []struct {
		name    string
		req     *models.CreateQuestionRequest
		wantErr error
	}{
		{name: "unknown course", req: mcqRequest("missing", "Anything?", "A"), wantErr: models.ErrNotFound},
		{name: "same text in course", req: mcqRequest(course.ID, "  what does ACID   stand for? ", "B"), wantErr: models.ErrConflict},
		{name: "letter outside options", req: mcqRequest(course.ID, "Pick one", "D"), wantErr: models.ErrValidation},
		{name: "mcq without options", req: &models.CreateQuestionRequest{
			CourseID: course.ID, Type: "mcq", Difficulty: "beginner", QuestionText: "Pick one", CorrectAnswer: "A",
		}, wantErr: models.ErrValidation},
		{name: "two correct options", req: twoCorrect, wantErr: models.ErrValidation},
		{name: "more than four options", req: tooMany, wantErr: models.ErrValidation},
		{name: "essay with options", req: essayWithOptions, wantErr: models.ErrValidation},
		{name: "non numeric calculation", req: &models.CreateQuestionRequest{
			CourseID: course.ID, Type: "calculation", Difficulty: "beginner", QuestionText: "2+2?", CorrectAnswer: "four",
		}, wantErr: models.ErrValidation},
		{name: "unknown type", req: &models.CreateQuestionRequest{
			CourseID: course.ID, Type: "poem", Difficulty: "beginner", QuestionText: "Rhyme", CorrectAnswer: "x",
		}, wantErr: models.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CreateQuestion(ctx, adminID, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUpdateQuestion(t *testing.T) {
	ctx := context.Background()
	service, _, course := newQuestionFixture(t)

	q, err := service.CreateQuestion(ctx, adminID, mcqRequest(course.ID, "Which structure backs most indexes?", "B"))
	require.NoError(t, err)

	t.Run("answer change moves the correct flag", func(t *testing.T) {
		answer := "C"
		updated, err := service.UpdateQuestion(ctx, q.ID, &models.UpdateQuestionRequest{CorrectAnswer: &answer})
		require.NoError(t, err)
		assert.True(t, updated.Options[2].IsCorrect)
		assert.False(t, updated.Options[1].IsCorrect)
	})

	t.Run("options are replaced", func(t *testing.T) {
		options := []models.OptionInput{{Text: "B-tree", IsCorrect: true}, {Text: "Array"}}
		answer := "A"
		updated, err := service.UpdateQuestion(ctx, q.ID, &models.UpdateQuestionRequest{Options: &options, CorrectAnswer: &answer})
		require.NoError(t, err)
		require.Len(t, updated.Options, 2)

		stored, err := service.GetQuestion(ctx, q.ID)
		require.NoError(t, err)
		require.Len(t, stored.Options, 2)
		assert.Equal(t, "B-tree", stored.Options[0].Text)
		assert.Equal(t, models.LetterKey{Letter: "A"}, stored.CorrectAnswer)
	})

	t.Run("text and difficulty", func(t *testing.T) {
		text, difficulty := "Which structure backs a clustered index?", "advanced"
		updated, err := service.UpdateQuestion(ctx, q.ID, &models.UpdateQuestionRequest{QuestionText: &text, Difficulty: &difficulty})
		require.NoError(t, err)
		assert.Equal(t, text, updated.Text)
		assert.Equal(t, models.DifficultyAdvanced, updated.Difficulty)
	})

	t.Run("answer that contradicts flagged options", func(t *testing.T) {
		options := []models.OptionInput{{Text: "B-tree", IsCorrect: true}, {Text: "Array"}}
		answer := "B"
		_, err := service.UpdateQuestion(ctx, q.ID, &models.UpdateQuestionRequest{Options: &options, CorrectAnswer: &answer})
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("missing question", func(t *testing.T) {
		text := "x"
		_, err := service.UpdateQuestion(ctx, "missing", &models.UpdateQuestionRequest{QuestionText: &text})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestDeleteQuestion(t *testing.T) {
	ctx := context.Background()
	service, _, course := newQuestionFixture(t)

	q, err := service.CreateQuestion(ctx, adminID, mcqRequest(course.ID, "Which structure backs most indexes?", "B"))
	require.NoError(t, err)

	require.NoError(t, service.DeleteQuestion(ctx, q.ID))
	assert.ErrorIs(t, service.DeleteQuestion(ctx, q.ID), models.ErrNotFound)
	_, err = service.GetQuestion(ctx, q.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListQuestions(t *testing.T) {
	ctx := context.Background()
	service, _, course := newQuestionFixture(t)

	_, err := service.CreateQuestion(ctx, adminID, mcqRequest(course.ID, "Which structure backs most indexes?", "B"))
	require.NoError(t, err)
	_, err = service.CreateQuestion(ctx, adminID, &models.CreateQuestionRequest{
		CourseID: course.ID, Type: "calculation", Difficulty: "advanced",
		QuestionText: "How many pages does a 3-level tree with fanout 10 address?", CorrectAnswer: "1000",
	})
	require.NoError(t, err)

	t.Run("admin filters", func(t *testing.T) {
		all, err := service.ListQuestions(ctx, models.QuestionFilter{CourseID: course.ID})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		calc, err := service.ListQuestions(ctx, models.QuestionFilter{Type: models.QuestionTypeCalculation})
		require.NoError(t, err)
		require.Len(t, calc, 1)
		assert.Equal(t, "1000", calc[0].CorrectAnswer.Raw())

		searched, err := service.ListQuestions(ctx, models.QuestionFilter{Search: "SORTED"})
		require.NoError(t, err)
		assert.Len(t, searched, 1)

		_, err = service.ListQuestions(ctx, models.QuestionFilter{Offset: -1})
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("public listing hides answers", func(t *testing.T) {
		views, err := service.ListPublicQuestions(ctx, course.ID, models.DifficultyBeginner, "")
		require.NoError(t, err)
		require.Len(t, views, 1)
		for _, o := range views[0].Options {
			assert.False(t, o.IsCorrect)
		}
		assert.Nil(t, views[0].Explanation)
	})
}

func TestSuggestQuestions(t *testing.T) {
	ctx := context.Background()
	service, store, course := newQuestionFixture(t)

	texts := []string{
		"Explain how a database index speeds up queries.",
		"Describe database replication and index maintenance costs.",
		"What is a linked list?",
	}
	for _, text := range texts {
		_, err := store.Questions().CreateQuestion(ctx, &models.Question{
			CourseID: course.ID, Type: models.QuestionTypeEssay, Difficulty: models.DifficultyBeginner,
			Text: text, CorrectAnswer: models.TextKey{Text: "answer"},
		})
		require.NoError(t, err)
	}

	tests := []struct {
		name      string
		text      string
		limit     int
		wantTexts []string
	}{
		{
			name:      "ranked by matched terms",
			text:      "database replication index",
			wantTexts: []string{texts[1], texts[0]},
		},
		{
			name:      "typo tolerance",
			text:      "databse",
			wantTexts: []string{texts[0], texts[1]},
		},
		{
			name:      "limit",
			text:      "database",
			limit:     1,
			wantTexts: []string{texts[0]},
		},
		{
			name:      "short words are ignored",
			text:      "a is",
			wantTexts: []string{},
		},
		{
			name:      "no match",
			text:      "blockchain",
			wantTexts: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suggestions, err := service.SuggestQuestions(ctx, course.ID, tt.text, tt.limit)
			require.NoError(t, err)
			got := make([]string, 0, len(suggestions))
			for _, s := range suggestions {
				got = append(got, s.Question.Text)
			}
			assert.Equal(t, tt.wantTexts, got)
		})
	}
}
