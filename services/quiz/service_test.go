package quiz

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"coursequiz/db"
	"coursequiz/models"
	"coursequiz/services/dedup"
	"coursequiz/services/generator"
	"coursequiz/services/grading"
	"coursequiz/services/llm"
	"coursequiz/services/similarity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const studentID = "student-1"

type fakeChat struct {
	reply string
	err   error
	block bool
	calls int
}

func (f *fakeChat) Complete(ctx context.Context, req llm.ChatRequest) (string, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

type fixture struct {
	store      *db.MemoryStore
	genChat    *fakeChat
	gradeChat  *fakeChat
	service    *Service
	course     *models.Course
	vectorSink *recordingVectors
}

type recordingVectors struct {
	upserts map[string][]float32
}

func (r *recordingVectors) FetchVectors(ctx context.Context, ids []string) (map[string][]float32, error) {
	out := make(map[string][]float32)
	for _, id := range ids {
		if v, ok := r.upserts[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (r *recordingVectors) UpsertVector(ctx context.Context, q *models.Question, vector []float32) error {
	r.upserts[q.ID] = vector
	return nil
}

func newFixture(t *testing.T, oracle *similarity.Oracle) *fixture {
	t.Helper()

	store := db.NewMemoryStore()
	course := &models.Course{Code: "CS201", Name: "Data Structures"}
	require.NoError(t, store.Courses().CreateCourse(context.Background(), course))

	if oracle == nil {
		oracle = similarity.NewOracle(nil, time.Second)
	}

	f := &fixture{
		store:      store,
		genChat:    &fakeChat{},
		gradeChat:  &fakeChat{},
		course:     course,
		vectorSink: &recordingVectors{upserts: map[string][]float32{}},
	}
	f.service = NewService(
		store,
		generator.NewGenerator(f.genChat, time.Second),
		dedup.NewDeduplicator(store.Questions(), oracle, f.vectorSink),
		grading.NewGrader(f.gradeChat, 50*time.Millisecond),
		f.vectorSink,
	)
	return f
}

func (f *fixture) reply(t *testing.T, drafts ...generator.Draft) {
	t.Helper()
	body, err := json.Marshal(generator.QuizDraft{DurationMinutes: 15, Questions: drafts})
	require.NoError(t, err)
	f.genChat.reply = "```json\n" + string(body) + "\n```"
}

func (f *fixture) seedMCQ(t *testing.T, text string) *models.Question {
	t.Helper()
	key := models.LetterKey{Letter: "A"}
	q := &models.Question{
		CourseID:      f.course.ID,
		Type:          models.QuestionTypeMCQ,
		Difficulty:    models.DifficultyBeginner,
		Text:          text,
		CorrectAnswer: key,
		Options:       models.LetterOptions([]string{"right", "wrong", "wrong", "wrong"}, key),
	}
	created, err := f.store.Questions().CreateQuestion(context.Background(), q)
	require.NoError(t, err)
	require.True(t, created)
	return q
}

func (f *fixture) generate(t *testing.T, count int) *models.QuizSessionView {
	t.Helper()
	view, err := f.service.Generate(context.Background(), studentID, &models.GenerateQuizRequest{
		CourseID:      f.course.ID,
		Format:        "mcq",
		Difficulty:    "beginner",
		QuestionCount: count,
	})
	require.NoError(t, err)
	return view
}

func mcqDraft(text string) generator.Draft {
	return generator.Draft{
		Type:          "mcq",
		Difficulty:    "beginner",
		Question:      text,
		Options:       []string{"right", "wrong", "wrong", "wrong"},
		CorrectAnswer: "A",
		Explanation:   "The first option is right.",
	}
}

func answer(questionID, raw string) models.AnswerSubmission {
	return models.AnswerSubmission{QuestionID: questionID, Answer: json.RawMessage(raw)}
}

func TestGenerateMergesIntoQuestionBank(t *testing.T) {
	f := newFixture(t, nil)
	stack := f.seedMCQ(t, "What is a stack?")
	queue := f.seedMCQ(t, "What is a queue?")

	f.reply(t,
		mcqDraft("What is a heap?"),
		mcqDraft("what is a STACK?"),
		mcqDraft("What is a trie?"),
		mcqDraft("What is a queue?"),
		mcqDraft("What is a graph?"),
	)

	view := f.generate(t, 5)
	ctx := context.Background()

	total, err := f.store.Questions().CountQuestions(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, total, "three new questions on top of the two seeded")

	logs, err := f.store.GenerationLogs().ListLogs(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 5, logs[0].QuestionsGenerated)
	assert.Equal(t, 3, logs[0].QuestionsStored)
	assert.Equal(t, 2, logs[0].DuplicatesFound)
	assert.Equal(t, studentID, logs[0].UserID)
	assert.Contains(t, logs[0].RawResponse, "What is a heap?")

	session, err := f.store.Sessions().GetSessionByID(ctx, view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionPending, session.Status)
	assert.Equal(t, 15, session.DurationMinutes)
	require.Equal(t, 5, session.QuestionIDs.Len())

	ids := session.QuestionIDs.IDs()
	assert.Equal(t, stack.ID, ids[1])
	assert.Equal(t, queue.ID, ids[3])

	require.Len(t, view.Questions, 5)
	for i, q := range view.Questions {
		assert.Equal(t, ids[i], q.ID)
		assert.Nil(t, q.Explanation)
		require.Len(t, q.Options, 4)
		for _, o := range q.Options {
			assert.False(t, o.IsCorrect)
		}
	}
}

func TestGenerateFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown course", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.service.Generate(ctx, studentID, &models.GenerateQuizRequest{
			CourseID: "missing", Format: "mcq", Difficulty: "beginner", QuestionCount: 1,
		})
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.Zero(t, f.genChat.calls)
	})

	t.Run("invalid request", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.service.Generate(ctx, studentID, &models.GenerateQuizRequest{
			CourseID: f.course.ID, Format: "poem", Difficulty: "beginner", QuestionCount: 1,
		})
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("upstream failure leaves nothing behind", func(t *testing.T) {
		f := newFixture(t, nil)
		f.genChat.err = &llm.UpstreamError{Provider: "OpenRouter", Status: 503, Body: "overloaded"}

		_, err := f.service.Generate(ctx, studentID, &models.GenerateQuizRequest{
			CourseID: f.course.ID, Format: "mcq", Difficulty: "beginner", QuestionCount: 2,
		})
		require.ErrorIs(t, err, models.ErrUpstream)

		sessions, err := f.store.Sessions().CountSessions(ctx)
		require.NoError(t, err)
		assert.Zero(t, sessions)
		logs, err := f.store.GenerationLogs().ListLogs(ctx, 10, 0)
		require.NoError(t, err)
		assert.Empty(t, logs)
	})
}

func TestGenerateStoresRepeatedDraftOnce(t *testing.T) {
	f := newFixture(t, nil)
	f.reply(t,
		mcqDraft("What is a heap?"),
		mcqDraft("What  is a heap?"),
		generator.Draft{Type: "mcq", Question: "Broken", Options: []string{"a"}, CorrectAnswer: "Z"},
	)

	view := f.generate(t, 3)
	ctx := context.Background()

	total, err := f.store.Questions().CountQuestions(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, view.Questions, 1)

	logs, err := f.store.GenerationLogs().ListLogs(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, logs[0].QuestionsStored)
	assert.Equal(t, 1, logs[0].DuplicatesFound)
}

func TestGenerateCachesCandidateVectors(t *testing.T) {
	embedder := &staticEmbedder{vectors: map[string][]float32{
		"What is a heap?": {1, 0},
		"What is a trie?": {0, 1},
	}}
	f := newFixture(t, similarity.NewOracle(embedder, time.Second))
	f.reply(t, mcqDraft("What is a heap?"), mcqDraft("What is a trie?"))

	view := f.generate(t, 2)

	require.Len(t, view.Questions, 2)
	assert.Equal(t, []float32{1, 0}, f.vectorSink.upserts[view.Questions[0].ID])
	assert.Equal(t, []float32{0, 1}, f.vectorSink.upserts[view.Questions[1].ID])
}

type staticEmbedder struct {
	vectors map[string][]float32
}

func (s *staticEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = s.vectors[text]
	}
	return out, nil
}

func (s *staticEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return s.vectors[text], nil
}

func TestStart(t *testing.T) {
	f := newFixture(t, nil)
	f.reply(t, mcqDraft("What is a heap?"))
	view := f.generate(t, 1)
	ctx := context.Background()

	_, err := f.service.Start(ctx, "someone-else", view.SessionID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	session, err := f.service.Start(ctx, studentID, view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionInProgress, session.Status)
	assert.NotNil(t, session.StartedAt)

	_, err = f.service.Start(ctx, studentID, view.SessionID)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestRetrieveKeepsFrozenOrderAndSkipsDeleted(t *testing.T) {
	f := newFixture(t, nil)
	f.reply(t, mcqDraft("Q1"), mcqDraft("Q2"), mcqDraft("Q3"))
	generated := f.generate(t, 3)
	ctx := context.Background()

	// a later question in the bank must not leak into the session
	f.seedMCQ(t, "Added later")
	require.NoError(t, f.store.Questions().DeleteQuestion(ctx, generated.Questions[1].ID))

	view, err := f.service.Retrieve(ctx, studentID, generated.SessionID)
	require.NoError(t, err)
	require.Len(t, view.Questions, 2)
	assert.Equal(t, generated.Questions[0].ID, view.Questions[0].ID)
	assert.Equal(t, generated.Questions[2].ID, view.Questions[1].ID)

	_, err = f.service.Submit(ctx, studentID, generated.SessionID, &models.SubmitQuizRequest{})
	assert.ErrorIs(t, err, models.ErrMalformedSession)
}

func TestSubmitGradesEveryFrozenQuestion(t *testing.T) {
	f := newFixture(t, nil)
	f.reply(t, mcqDraft("Q1"), mcqDraft("Q2"), mcqDraft("Q3"))
	view := f.generate(t, 3)
	ctx := context.Background()
	q := view.Questions

	results, err := f.service.Submit(ctx, studentID, view.SessionID, &models.SubmitQuizRequest{
		Answers: []models.AnswerSubmission{
			answer(q[0].ID, `"a"`),
			answer(q[1].ID, `"B"`),
			answer("not-in-session", `"A"`),
		},
	})
	require.NoError(t, err)

	assert.InDelta(t, 33.333, results.Score, 0.01)
	assert.Equal(t, 3, results.TotalQuestions)
	assert.Equal(t, 1, results.CorrectAnswers)
	require.Len(t, results.Results, 3)
	assert.Equal(t, "The first option is right.", results.Results[0].Feedback)
	assert.Equal(t, "Incorrect. The first option is right.", results.Results[1].Feedback)
	assert.Equal(t, grading.NoAnswerFeedback, results.Results[2].Feedback)
	assert.Zero(t, results.Results[2].PointsEarned)
	assert.Equal(t, "A", results.Results[2].CorrectAnswer)

	responses, err := f.store.Sessions().ListResponses(ctx, view.SessionID)
	require.NoError(t, err)
	require.Len(t, responses, 3)
	assert.Equal(t, q[2].ID, responses[2].QuestionID)
	assert.JSONEq(t, `null`, string(responses[2].StudentAnswer))

	session, err := f.store.Sessions().GetSessionByID(ctx, view.SessionID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, session.Status)
	require.NotNil(t, session.Score)
	assert.InDelta(t, 33.333, *session.Score, 0.01)
	assert.NotNil(t, session.StartedAt)
	assert.NotNil(t, session.CompletedAt)
}

func TestSubmitTwiceIsRejected(t *testing.T) {
	f := newFixture(t, nil)
	f.reply(t, mcqDraft("Q1"), mcqDraft("Q2"))
	view := f.generate(t, 2)
	ctx := context.Background()
	req := &models.SubmitQuizRequest{Answers: []models.AnswerSubmission{answer(view.Questions[0].ID, `"A"`)}}

	_, err := f.service.Submit(ctx, studentID, view.SessionID, req)
	require.NoError(t, err)

	_, err = f.service.Submit(ctx, studentID, view.SessionID, req)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	responses, err := f.store.Sessions().ListResponses(ctx, view.SessionID)
	require.NoError(t, err)
	assert.Len(t, responses, 2)
}

func TestSubmitEmptySessionIsMalformed(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	session := &models.QuizSession{
		StudentID: studentID,
		CourseID:  f.course.ID,
		Status:    models.SessionPending,
	}
	require.NoError(t, f.store.Sessions().CreateSession(ctx, session))

	_, err := f.service.Submit(ctx, studentID, session.ID, &models.SubmitQuizRequest{})
	assert.ErrorIs(t, err, models.ErrMalformedSession)
}

func TestSubmitEssayFallsBackWhenGradingTimesOut(t *testing.T) {
	f := newFixture(t, nil)
	f.gradeChat.block = true
	f.reply(t, generator.Draft{
		Type:          "essay",
		Difficulty:    "intermediate",
		Question:      "Explain amortized analysis.",
		CorrectAnswer: "average cost sequence operations",
	})
	view := f.generate(t, 1)

	results, err := f.service.Submit(context.Background(), studentID, view.SessionID, &models.SubmitQuizRequest{
		Answers: []models.AnswerSubmission{
			answer(view.Questions[0].ID, `"The average cost over a sequence of operations."`),
		},
	})
	require.NoError(t, err)

	require.Len(t, results.Results, 1)
	assert.True(t, results.Results[0].IsCorrect)
	assert.Contains(t, results.Results[0].Feedback, "Automatic grading unavailable")
	assert.Equal(t, 100.0, results.Score)
	assert.Equal(t, 1, f.gradeChat.calls)
}

func TestHistory(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.reply(t, mcqDraft("Q1"))
	first := f.generate(t, 1)

	orphan := &models.QuizSession{
		StudentID:   studentID,
		CourseID:    "deleted-course",
		QuestionIDs: models.NewQuestionSet([]string{"x"}),
		Status:      models.SessionPending,
	}
	time.Sleep(time.Millisecond)
	require.NoError(t, f.store.Sessions().CreateSession(ctx, orphan))

	history, err := f.service.History(ctx, studentID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, orphan.ID, history[0].SessionID)
	assert.Equal(t, "Unknown Course", history[0].CourseName)
	assert.Equal(t, first.SessionID, history[1].SessionID)
	assert.Equal(t, "Data Structures", history[1].CourseName)

	others, err := f.service.History(ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, others)
}
