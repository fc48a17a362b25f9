package db

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"coursequiz/models"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// MemoryStore keeps everything in process. It backs the service tests and
// DB_DRIVER=memory. Transactions run on a copy of the state that replaces the
// shared state on success.
type MemoryStore struct {
	shared  *memoryShared
	txState *memoryState
}

type memoryShared struct {
	mu    sync.RWMutex
	state *memoryState
}

type memoryState struct {
	users         map[string]models.User
	courses       map[string]models.Course
	questions     map[string]models.Question
	questionOrder []string
	sessions      map[string]models.QuizSession
	sessionOrder  []string
	responses     []models.QuizResponse
	logs          []models.AIGenerationLog
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{shared: &memoryShared{state: newMemoryState()}}
}

func newMemoryState() *memoryState {
	return &memoryState{
		users:     make(map[string]models.User),
		courses:   make(map[string]models.Course),
		questions: make(map[string]models.Question),
		sessions:  make(map[string]models.QuizSession),
	}
}

func (st *memoryState) clone() *memoryState {
	c := newMemoryState()
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.courses {
		c.courses[k] = v
	}
	for k, v := range st.questions {
		c.questions[k] = copyQuestion(v)
	}
	for k, v := range st.sessions {
		c.sessions[k] = v
	}
	c.questionOrder = append([]string(nil), st.questionOrder...)
	c.sessionOrder = append([]string(nil), st.sessionOrder...)
	c.responses = append([]models.QuizResponse(nil), st.responses...)
	c.logs = append([]models.AIGenerationLog(nil), st.logs...)
	return c
}

func copyQuestion(q models.Question) models.Question {
	q.Options = append([]models.Option(nil), q.Options...)
	return q
}

func (s *MemoryStore) view(fn func(st *memoryState) error) error {
	if s.txState != nil {
		return fn(s.txState)
	}
	s.shared.mu.RLock()
	defer s.shared.mu.RUnlock()
	return fn(s.shared.state)
}

func (s *MemoryStore) update(fn func(st *memoryState) error) error {
	if s.txState != nil {
		return fn(s.txState)
	}
	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()
	return fn(s.shared.state)
}

func (s *MemoryStore) Users() UserRepository { return memoryUsers{s} }
func (s *MemoryStore) Courses() CourseRepository { return memoryCourses{s} }
func (s *MemoryStore) Questions() QuestionRepository { return memoryQuestions{s} }
func (s *MemoryStore) Sessions() SessionRepository { return memorySessions{s} }
func (s *MemoryStore) GenerationLogs() GenerationLogRepository { return memoryLogs{s} }
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.txState != nil {
		return fn(s)
	}

	s.shared.mu.Lock()
	defer s.shared.mu.Unlock()

	working := s.shared.state.clone()
	if err := fn(&MemoryStore{shared: s.shared, txState: working}); err != nil {
		return err
	}
	s.shared.state = working
	return nil
}

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) CreateUser(ctx context.Context, user *models.User) error {
	return r.s.update(func(st *memoryState) error {
		user.Email = strings.ToLower(strings.TrimSpace(user.Email))
		for _, existing := range st.users {
			if existing.Email == user.Email {
				return fmt.Errorf("failed to create user: %w: email %s already exists", models.ErrConflict, user.Email)
			}
		}
		if user.ID == "" {
			user.ID = uuid.NewString()
		}
		user.CreatedAt = time.Now().UTC()
		st.users[user.ID] = *user
		return nil
	})
}

func (r memoryUsers) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var found *models.User
	err := r.s.view(func(st *memoryState) error {
		user, ok := st.users[id]
		if !ok {
			return fmt.Errorf("user with id %s %w", id, models.ErrNotFound)
		}
		found = &user
		return nil
	})
	return found, err
}

func (r memoryUsers) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var found *models.User
	normalized := strings.ToLower(strings.TrimSpace(email))
	err := r.s.view(func(st *memoryState) error {
		for _, user := range st.users {
			if user.Email == normalized {
				u := user
				found = &u
				return nil
			}
		}
		return fmt.Errorf("user with email %s %w", email, models.ErrNotFound)
	})
	return found, err
}

func (r memoryUsers) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := r.s.view(func(st *memoryState) error {
		count = len(st.users)
		return nil
	})
	return count, err
}

type memoryCourses struct{ s *MemoryStore }

func (r memoryCourses) CreateCourse(ctx context.Context, course *models.Course) error {
	return r.s.update(func(st *memoryState) error {
		if codeTaken(st, course.Code, "") {
			return fmt.Errorf("failed to create course: %w: course code %s already exists", models.ErrConflict, course.Code)
		}
		if course.ID == "" {
			course.ID = uuid.NewString()
		}
		now := time.Now().UTC()
		course.CreatedAt, course.UpdatedAt = now, now
		st.courses[course.ID] = *course
		return nil
	})
}

func codeTaken(st *memoryState, code, exceptID string) bool {
	for id, c := range st.courses {
		if id != exceptID && c.Code == code {
			return true
		}
	}
	return false
}

func (r memoryCourses) GetCourseByID(ctx context.Context, id string) (*models.Course, error) {
	var found *models.Course
	err := r.s.view(func(st *memoryState) error {
		course, ok := st.courses[id]
		if !ok {
			return fmt.Errorf("course with id %s %w", id, models.ErrNotFound)
		}
		found = &course
		return nil
	})
	return found, err
}

func (r memoryCourses) GetAllCourses(ctx context.Context) ([]*models.Course, error) {
	var courses []*models.Course
	err := r.s.view(func(st *memoryState) error {
		courses = make([]*models.Course, 0, len(st.courses))
		for _, c := range st.courses {
			course := c
			courses = append(courses, &course)
		}
		sort.Slice(courses, func(i, j int) bool { return courses[i].Code < courses[j].Code })
		return nil
	})
	return courses, err
}

func (r memoryCourses) UpdateCourse(ctx context.Context, course *models.Course) error {
	return r.s.update(func(st *memoryState) error {
		existing, ok := st.courses[course.ID]
		if !ok {
			return fmt.Errorf("course with id %s %w", course.ID, models.ErrNotFound)
		}
		if codeTaken(st, course.Code, course.ID) {
			return fmt.Errorf("failed to update course: %w: course code %s already exists", models.ErrConflict, course.Code)
		}
		course.CreatedAt = existing.CreatedAt
		course.UpdatedAt = time.Now().UTC()
		st.courses[course.ID] = *course
		return nil
	})
}

func (r memoryCourses) DeleteCourse(ctx context.Context, id string) error {
	return r.s.update(func(st *memoryState) error {
		if _, ok := st.courses[id]; !ok {
			return fmt.Errorf("course with id %s %w", id, models.ErrNotFound)
		}
		delete(st.courses, id)

		kept := st.questionOrder[:0]
		for _, qid := range st.questionOrder {
			if st.questions[qid].CourseID == id {
				delete(st.questions, qid)
				continue
			}
			kept = append(kept, qid)
		}
		st.questionOrder = kept

		st.sessionOrder = lo.Filter(st.sessionOrder, func(sid string, _ int) bool {
			return st.sessions[sid].CourseID != id
		})
		for sid, session := range st.sessions {
			if session.CourseID == id {
				delete(st.sessions, sid)
			}
		}
		return nil
	})
}

func (r memoryCourses) CountCourses(ctx context.Context) (int, error) {
	var count int
	err := r.s.view(func(st *memoryState) error {
		count = len(st.courses)
		return nil
	})
	return count, err
}

type memoryQuestions struct{ s *MemoryStore }

func (r memoryQuestions) CreateQuestion(ctx context.Context, question *models.Question) (bool, error) {
	created := false
	err := r.s.update(func(st *memoryState) error {
		question.ContentHash = models.ContentHash(question.CourseID, question.Text)
		for _, qid := range st.questionOrder {
			existing := st.questions[qid]
			if existing.CourseID == question.CourseID && existing.ContentHash == question.ContentHash {
				question.ID = existing.ID
				return nil
			}
		}

		if question.ID == "" {
			question.ID = uuid.NewString()
		}
		now := time.Now().UTC()
		question.CreatedAt, question.UpdatedAt = now, now
		assignOptions(question)

		st.questions[question.ID] = copyQuestion(*question)
		st.questionOrder = append(st.questionOrder, question.ID)
		created = true
		return nil
	})
	return created, err
}

func assignOptions(question *models.Question) {
	for i := range question.Options {
		if question.Options[i].ID == "" {
			question.Options[i].ID = uuid.NewString()
		}
		question.Options[i].QuestionID = question.ID
		question.Options[i].Position = i
	}
}

func (r memoryQuestions) GetQuestionByID(ctx context.Context, id string) (*models.Question, error) {
	var found *models.Question
	err := r.s.view(func(st *memoryState) error {
		q, ok := st.questions[id]
		if !ok {
			return fmt.Errorf("question with id %s %w", id, models.ErrNotFound)
		}
		q = copyQuestion(q)
		found = &q
		return nil
	})
	return found, err
}

func (r memoryQuestions) GetQuestionsByIDs(ctx context.Context, ids []string) (map[string]*models.Question, error) {
	result := make(map[string]*models.Question, len(ids))
	err := r.s.view(func(st *memoryState) error {
		for _, id := range ids {
			if q, ok := st.questions[id]; ok {
				q = copyQuestion(q)
				result[id] = &q
			}
		}
		return nil
	})
	return result, err
}

func (r memoryQuestions) ListQuestions(ctx context.Context, filter models.QuestionFilter) ([]*models.Question, error) {
	var matched []*models.Question
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	err := r.s.view(func(st *memoryState) error {
		matched = make([]*models.Question, 0)
		for _, qid := range st.questionOrder {
			q := st.questions[qid]
			if filter.CourseID != "" && q.CourseID != filter.CourseID {
				continue
			}
			if filter.Difficulty != "" && q.Difficulty != filter.Difficulty {
				continue
			}
			if filter.Type != "" && q.Type != filter.Type {
				continue
			}
			if filter.IsAIGenerated != nil && q.IsAIGenerated != *filter.IsAIGenerated {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(q.Text), search) &&
				!strings.Contains(strings.ToLower(q.Explanation), search) {
				continue
			}
			q = copyQuestion(q)
			matched = append(matched, &q)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if filter.Offset > 0 {
		matched = matched[min(filter.Offset, len(matched)):]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (r memoryQuestions) UpdateQuestion(ctx context.Context, question *models.Question) error {
	return r.s.update(func(st *memoryState) error {
		existing, ok := st.questions[question.ID]
		if !ok {
			return fmt.Errorf("question with id %s %w", question.ID, models.ErrNotFound)
		}

		hash := models.ContentHash(existing.CourseID, question.Text)
		for _, other := range st.questions {
			if other.ID != question.ID && other.CourseID == existing.CourseID && other.ContentHash == hash {
				return fmt.Errorf("failed to update question: %w: a question with this text already exists", models.ErrConflict)
			}
		}

		question.CourseID = existing.CourseID
		question.ContentHash = hash
		question.CreatedAt = existing.CreatedAt
		question.UpdatedAt = time.Now().UTC()
		for i := range question.Options {
			question.Options[i].ID = ""
		}
		assignOptions(question)
		st.questions[question.ID] = copyQuestion(*question)
		return nil
	})
}

func (r memoryQuestions) DeleteQuestion(ctx context.Context, id string) error {
	return r.s.update(func(st *memoryState) error {
		if _, ok := st.questions[id]; !ok {
			return fmt.Errorf("question with id %s %w", id, models.ErrNotFound)
		}
		delete(st.questions, id)
		st.questionOrder = lo.Without(st.questionOrder, id)
		return nil
	})
}

func (r memoryQuestions) CountQuestions(ctx context.Context, aiGenerated *bool) (int, error) {
	var count int
	err := r.s.view(func(st *memoryState) error {
		for _, q := range st.questions {
			if aiGenerated == nil || q.IsAIGenerated == *aiGenerated {
				count++
			}
		}
		return nil
	})
	return count, err
}

type memorySessions struct{ s *MemoryStore }

func (r memorySessions) CreateSession(ctx context.Context, session *models.QuizSession) error {
	return r.s.update(func(st *memoryState) error {
		if session.ID == "" {
			session.ID = uuid.NewString()
		}
		session.CreatedAt = time.Now().UTC()
		st.sessions[session.ID] = *session
		st.sessionOrder = append(st.sessionOrder, session.ID)
		return nil
	})
}

func (r memorySessions) GetSessionByID(ctx context.Context, id string) (*models.QuizSession, error) {
	var found *models.QuizSession
	err := r.s.view(func(st *memoryState) error {
		session, ok := st.sessions[id]
		if !ok {
			return fmt.Errorf("quiz session with id %s %w", id, models.ErrNotFound)
		}
		found = &session
		return nil
	})
	return found, err
}

func (r memorySessions) StartSession(ctx context.Context, id string, at time.Time) error {
	return r.s.update(func(st *memoryState) error {
		session, ok := st.sessions[id]
		if !ok {
			return fmt.Errorf("quiz session with id %s %w", id, models.ErrNotFound)
		}
		if session.Status != models.SessionPending {
			return fmt.Errorf("quiz session %s: %w", id, models.ErrInvalidState)
		}
		session.Status = models.SessionInProgress
		session.StartedAt = &at
		st.sessions[id] = session
		return nil
	})
}

func (r memorySessions) CompleteSession(ctx context.Context, id string, score float64, at time.Time) error {
	return r.s.update(func(st *memoryState) error {
		session, ok := st.sessions[id]
		if !ok {
			return fmt.Errorf("quiz session with id %s %w", id, models.ErrNotFound)
		}
		if session.Status == models.SessionCompleted {
			return fmt.Errorf("quiz session %s: %w", id, models.ErrInvalidState)
		}
		session.Status = models.SessionCompleted
		session.Score = &score
		session.CompletedAt = &at
		if session.StartedAt == nil {
			session.StartedAt = &at
		}
		st.sessions[id] = session
		return nil
	})
}

func (r memorySessions) CreateResponse(ctx context.Context, response *models.QuizResponse) error {
	return r.s.update(func(st *memoryState) error {
		if response.ID == "" {
			response.ID = uuid.NewString()
		}
		response.CreatedAt = time.Now().UTC()
		st.responses = append(st.responses, *response)
		return nil
	})
}

func (r memorySessions) ListResponses(ctx context.Context, sessionID string) ([]*models.QuizResponse, error) {
	var responses []*models.QuizResponse
	err := r.s.view(func(st *memoryState) error {
		responses = make([]*models.QuizResponse, 0)
		for _, resp := range st.responses {
			if resp.SessionID == sessionID {
				rc := resp
				responses = append(responses, &rc)
			}
		}
		return nil
	})
	return responses, err
}

func (r memorySessions) ListHistory(ctx context.Context, studentID string) ([]*models.HistoryEntry, error) {
	var entries []*models.HistoryEntry
	err := r.s.view(func(st *memoryState) error {
		entries = make([]*models.HistoryEntry, 0)
		for i := len(st.sessionOrder) - 1; i >= 0; i-- {
			session := st.sessions[st.sessionOrder[i]]
			if session.StudentID != studentID {
				continue
			}
			entries = append(entries, &models.HistoryEntry{
				SessionID:       session.ID,
				CourseID:        session.CourseID,
				CourseName:      st.courses[session.CourseID].Name,
				Status:          session.Status,
				Score:           session.Score,
				QuestionCount:   session.QuestionIDs.Len(),
				DurationMinutes: session.DurationMinutes,
				CreatedAt:       session.CreatedAt,
				StartedAt:       session.StartedAt,
				CompletedAt:     session.CompletedAt,
			})
		}
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
		return nil
	})
	return entries, err
}

func (r memorySessions) CountSessions(ctx context.Context) (int, error) {
	var count int
	err := r.s.view(func(st *memoryState) error {
		count = len(st.sessions)
		return nil
	})
	return count, err
}

type memoryLogs struct{ s *MemoryStore }

func (r memoryLogs) CreateLog(ctx context.Context, entry *models.AIGenerationLog) error {
	return r.s.update(func(st *memoryState) error {
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		entry.CreatedAt = time.Now().UTC()
		st.logs = append(st.logs, *entry)
		return nil
	})
}

func (r memoryLogs) ListLogs(ctx context.Context, limit, offset int) ([]*models.AIGenerationLog, error) {
	var logs []*models.AIGenerationLog
	err := r.s.view(func(st *memoryState) error {
		logs = make([]*models.AIGenerationLog, 0)
		for i := len(st.logs) - 1 - offset; i >= 0 && len(logs) < limit; i-- {
			entry := st.logs[i]
			logs = append(logs, &entry)
		}
		return nil
	})
	return logs, err
}

func (r memoryLogs) CountLogs(ctx context.Context) (int, error) {
	var count int
	err := r.s.view(func(st *memoryState) error {
		count = len(st.logs)
		return nil
	})
	return count, err
}
