package handlers

import (
	"net/http"

	"coursequiz/models"
	"coursequiz/services"

	"github.com/gorilla/mux"
)

// CatalogHandler serves the public course and question listings.
type CatalogHandler struct {
	courses   *services.CourseService
	questions *services.QuestionService
}

func NewCatalogHandler(courses *services.CourseService, questions *services.QuestionService) *CatalogHandler {
	return &CatalogHandler{courses: courses, questions: questions}
}

func (h *CatalogHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/courses", h.ListCourses).Methods("GET")
	router.HandleFunc("/questions", h.ListQuestions).Methods("GET")
}

func (h *CatalogHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.ListCourses(r.Context())
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve courses")
		return
	}

	writeJSONResponse(w, http.StatusOK, courses)
}

func (h *CatalogHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseQuestionFilter(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	views, err := h.questions.ListPublicQuestions(r.Context(), filter.CourseID, filter.Difficulty, filter.Type)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, views)
}

// parseQuestionFilter reads the listing filters shared by the public and
// admin question endpoints.
func parseQuestionFilter(r *http.Request) (models.QuestionFilter, error) {
	query := r.URL.Query()
	filter := models.QuestionFilter{
		CourseID: query.Get("course_id"),
		Search:   query.Get("search"),
	}

	var err error
	if v := query.Get("difficulty"); v != "" {
		if filter.Difficulty, err = models.ParseDifficulty(v); err != nil {
			return filter, err
		}
	}
	if v := query.Get("question_type"); v != "" {
		if filter.Type, err = models.ParseQuestionType(v); err != nil {
			return filter, err
		}
	}
	if v := query.Get("is_ai_generated"); v != "" {
		ai, err := parseBool(v)
		if err != nil {
			return filter, err
		}
		filter.IsAIGenerated = &ai
	}
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		return filter, err
	}
	return filter, nil
}
