package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"coursequiz/db"
	"coursequiz/models"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const (
	defaultSuggestionLimit = 5
	maxSuggestionLimit     = 20
	maxTermDistance        = 2
)

type QuestionService struct {
	store db.Store
}

func NewQuestionService(store db.Store) *QuestionService {
	return &QuestionService{store: store}
}

// ListQuestions is the admin listing: every filter applies and answers are
// included.
func (s *QuestionService) ListQuestions(ctx context.Context, filter models.QuestionFilter) ([]*models.Question, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, fmt.Errorf("%w: limit and offset must not be negative", models.ErrValidation)
	}

	questions, err := s.store.Questions().ListQuestions(ctx, filter)
	if err != nil {
		log.Errorf("Failed to list questions: %v", err)
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	return questions, nil
}

// ListPublicQuestions lists bank questions with the answer keys hidden.
func (s *QuestionService) ListPublicQuestions(ctx context.Context, courseID string, difficulty models.Difficulty, qType models.QuestionType) ([]models.QuestionView, error) {
	questions, err := s.ListQuestions(ctx, models.QuestionFilter{CourseID: courseID, Difficulty: difficulty, Type: qType})
	if err != nil {
		return nil, err
	}
	return lo.Map(questions, func(q *models.Question, _ int) models.QuestionView {
		return models.NewQuestionView(q)
	}), nil
}

func (s *QuestionService) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	return s.store.Questions().GetQuestionByID(ctx, id)
}

func (s *QuestionService) CreateQuestion(ctx context.Context, adminID string, req *models.CreateQuestionRequest) (*models.Question, error) {
	log.Infof("Starting manual question creation for course %s", req.CourseID)

	if err := models.Validate(req); err != nil {
		log.Errorf("Question creation validation failed: %v", err)
		return nil, err
	}
	qType, err := models.ParseQuestionType(req.Type)
	if err != nil {
		return nil, err
	}
	difficulty, err := models.ParseDifficulty(req.Difficulty)
	if err != nil {
		return nil, err
	}
	key, err := models.ParseAnswerKey(qType, req.CorrectAnswer)
	if err != nil {
		return nil, err
	}

	question := &models.Question{
		CourseID:      req.CourseID,
		Type:          qType,
		Difficulty:    difficulty,
		Text:          strings.TrimSpace(req.QuestionText),
		CorrectAnswer: key,
		Explanation:   strings.TrimSpace(req.Explanation),
		IsAIGenerated: false,
		CreatedBy:     &adminID,
	}
	if question.Options, err = buildOptions(qType, key, req.Options); err != nil {
		return nil, err
	}
	if err := question.CheckOptions(); err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(tx db.Store) error {
		if _, err := tx.Courses().GetCourseByID(ctx, req.CourseID); err != nil {
			return err
		}
		created, err := tx.Questions().CreateQuestion(ctx, question)
		if err != nil {
			return err
		}
		if !created {
			return fmt.Errorf("%w: a question with this text already exists in the course (id %s)", models.ErrConflict, question.ID)
		}
		return nil
	})
	if err != nil {
		log.Errorf("Failed to create question: %v", err)
		return nil, err
	}

	log.Infof("Successfully created question %s", question.ID)
	return question, nil
}

// UpdateQuestion applies the provided fields. Options, when given, replace
// the existing set; otherwise the correct flags follow a changed answer.
func (s *QuestionService) UpdateQuestion(ctx context.Context, id string, req *models.UpdateQuestionRequest) (*models.Question, error) {
	log.Infof("Starting update question with ID %s", id)

	if err := models.Validate(req); err != nil {
		return nil, err
	}

	var question *models.Question
	err := s.store.WithTx(ctx, func(tx db.Store) error {
		var err error
		question, err = tx.Questions().GetQuestionByID(ctx, id)
		if err != nil {
			return err
		}

		if req.Difficulty != nil {
			if question.Difficulty, err = models.ParseDifficulty(*req.Difficulty); err != nil {
				return err
			}
		}
		if req.QuestionText != nil {
			question.Text = strings.TrimSpace(*req.QuestionText)
		}
		if req.Explanation != nil {
			question.Explanation = strings.TrimSpace(*req.Explanation)
		}
		if req.CorrectAnswer != nil {
			if question.CorrectAnswer, err = models.ParseAnswerKey(question.Type, *req.CorrectAnswer); err != nil {
				return err
			}
		}

		switch {
		case req.Options != nil:
			question.Options, err = buildOptions(question.Type, question.CorrectAnswer, *req.Options)
		case req.CorrectAnswer != nil:
			question.Options = remarkOptions(question.Options, question.CorrectAnswer)
		}
		if err != nil {
			return err
		}
		if err := question.CheckOptions(); err != nil {
			return err
		}
		return tx.Questions().UpdateQuestion(ctx, question)
	})
	if err != nil {
		log.Errorf("Failed to update question %s: %v", id, err)
		return nil, err
	}

	log.Infof("Successfully updated question with ID %s", id)
	return question, nil
}

func (s *QuestionService) DeleteQuestion(ctx context.Context, id string) error {
	log.Infof("Starting delete question with ID %s", id)

	if err := s.store.Questions().DeleteQuestion(ctx, id); err != nil {
		log.Errorf("Failed to delete question %s: %v", id, err)
		return err
	}

	log.Infof("Successfully deleted question with ID %s", id)
	return nil
}

// Suggestion is a bank question that resembles a draft text.
type Suggestion struct {
	Question *models.Question `json:"question"`
	Matches  int              `json:"matched_terms"`
}

// SuggestQuestions ranks a course's questions by how many terms of text
// they match, tolerating typos. Admins use it before adding a question by
// hand.
func (s *QuestionService) SuggestQuestions(ctx context.Context, courseID, text string, limit int) ([]Suggestion, error) {
	terms := searchTerms(text)
	log.Infof("Starting question suggestions with %d search terms", len(terms))

	if len(terms) == 0 {
		return []Suggestion{}, nil
	}
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}
	limit = min(limit, maxSuggestionLimit)

	questions, err := s.ListQuestions(ctx, models.QuestionFilter{CourseID: courseID})
	if err != nil {
		return nil, err
	}

	suggestions := make([]Suggestion, 0)
	for _, q := range questions {
		if matches := matchedTerms(q.Text, terms); matches > 0 {
			suggestions = append(suggestions, Suggestion{Question: q, Matches: matches})
		}
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Matches > suggestions[j].Matches
	})
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}

	log.Infof("Found %d questions resembling the draft", len(suggestions))
	return suggestions, nil
}

func searchTerms(text string) []string {
	words := cleanWords(text)
	return lo.Uniq(lo.Filter(words, func(w string, _ int) bool { return len(w) > 2 }))
}

func cleanWords(text string) []string {
	words := strings.Fields(strings.ToLower(text))
	clean := make([]string, 0, len(words))
	for _, word := range words {
		if w := strings.Trim(word, ".,!?;:()[]{}\"'"); len(w) > 0 {
			clean = append(clean, w)
		}
	}
	return clean
}

func matchedTerms(content string, terms []string) int {
	lower := strings.ToLower(content)
	words := cleanWords(content)
	count := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			count++
			continue
		}
		// a dropped letter or two still counts
		near := lo.SomeBy(fuzzy.RankFindFold(term, words), func(r fuzzy.Rank) bool {
			return r.Distance <= maxTermDistance
		})
		if near {
			count++
		}
	}
	return count
}

// buildOptions turns admin input into stored options. MCQ options are
// labelled A-D by position; when no option is flagged correct the flag
// follows the answer key. True/false defaults to the fixed pair.
func buildOptions(qType models.QuestionType, key models.AnswerKey, inputs []models.OptionInput) ([]models.Option, error) {
	switch qType {
	case models.QuestionTypeMCQ:
		if len(inputs) == 0 {
			return nil, fmt.Errorf("%w: multiple-choice questions need options", models.ErrValidation)
		}
		if len(inputs) > len(models.MCQLetters) {
			return nil, fmt.Errorf("%w: multiple-choice questions take at most %d options", models.ErrValidation, len(models.MCQLetters))
		}
		letterKey, _ := key.(models.LetterKey)
		flagged := lo.SomeBy(inputs, func(in models.OptionInput) bool { return in.IsCorrect })
		options := make([]models.Option, 0, len(inputs))
		for i, in := range inputs {
			letter := models.MCQLetters[i]
			if in.Letter != "" && !strings.EqualFold(in.Letter, letter) {
				return nil, fmt.Errorf("%w: option %d must be labelled %s", models.ErrValidation, i+1, letter)
			}
			correct := in.IsCorrect
			if !flagged {
				correct = letter == letterKey.Letter
			}
			options = append(options, models.Option{
				Text:      strings.TrimSpace(in.Text),
				Letter:    letter,
				IsCorrect: correct,
				Position:  i,
			})
		}
		return options, nil
	case models.QuestionTypeTrueFalse:
		boolKey, _ := key.(models.BooleanKey)
		if len(inputs) == 0 {
			return models.TrueFalseOptions(boolKey), nil
		}
		return lo.Map(inputs, func(in models.OptionInput, i int) models.Option {
			return models.Option{Text: strings.TrimSpace(in.Text), IsCorrect: in.IsCorrect, Position: i}
		}), nil
	}

	if len(inputs) > 0 {
		return nil, fmt.Errorf("%w: %s questions do not take options", models.ErrValidation, qType)
	}
	return nil, nil
}

func remarkOptions(options []models.Option, key models.AnswerKey) []models.Option {
	out := make([]models.Option, len(options))
	for i, o := range options {
		switch k := key.(type) {
		case models.LetterKey:
			o.IsCorrect = o.Letter == k.Letter
		case models.BooleanKey:
			o.IsCorrect = (o.Text == "True") == k.Value
		}
		out[i] = o
	}
	return out
}
