package handlers

import (
	"net/http"

	"coursequiz/models"
	"coursequiz/services"

	"github.com/gorilla/mux"
)

type AdminHandler struct {
	questions *services.QuestionService
	courses   *services.CourseService
	admin     *services.AdminService
	auth      *Authenticator
}

func NewAdminHandler(questions *services.QuestionService, courses *services.CourseService, admin *services.AdminService, auth *Authenticator) *AdminHandler {
	return &AdminHandler{questions: questions, courses: courses, admin: admin, auth: auth}
}

func (h *AdminHandler) RegisterRoutes(router *mux.Router) {
	sub := router.PathPrefix("/admin").Subrouter()
	sub.Use(h.auth.RequireAdmin)

	sub.HandleFunc("/questions", h.ListQuestions).Methods("GET")
	sub.HandleFunc("/questions", h.CreateQuestion).Methods("POST")
	sub.HandleFunc("/questions/suggest", h.SuggestQuestions).Methods("GET")
	sub.HandleFunc("/questions/{id}", h.GetQuestion).Methods("GET")
	sub.HandleFunc("/questions/{id}", h.UpdateQuestion).Methods("PUT")
	sub.HandleFunc("/questions/{id}", h.DeleteQuestion).Methods("DELETE")

	sub.HandleFunc("/courses", h.ListCourses).Methods("GET")
	sub.HandleFunc("/courses", h.CreateCourse).Methods("POST")
	sub.HandleFunc("/courses/{id}", h.UpdateCourse).Methods("PUT")
	sub.HandleFunc("/courses/{id}", h.DeleteCourse).Methods("DELETE")

	sub.HandleFunc("/logs", h.ListLogs).Methods("GET")
	sub.HandleFunc("/stats", h.Stats).Methods("GET")
}

func (h *AdminHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseQuestionFilter(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	questions, err := h.questions.ListQuestions(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, questions)
}

func (h *AdminHandler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	question, err := h.questions.GetQuestion(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, question)
}

func (h *AdminHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req models.CreateQuestionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	question, err := h.questions.CreateQuestion(r.Context(), userIDFrom(r), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, question)
}

func (h *AdminHandler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateQuestionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	question, err := h.questions.UpdateQuestion(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, question)
}

func (h *AdminHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := h.questions.DeleteQuestion(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) SuggestQuestions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	query := r.URL.Query()
	suggestions, err := h.questions.SuggestQuestions(r.Context(), query.Get("course_id"), query.Get("text"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, suggestions)
}

func (h *AdminHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.ListCourses(r.Context())
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve courses")
		return
	}

	writeJSONResponse(w, http.StatusOK, courses)
}

func (h *AdminHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCourseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	course, err := h.courses.CreateCourse(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, course)
}

func (h *AdminHandler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateCourseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	course, err := h.courses.UpdateCourse(r.Context(), mux.Vars(r)["id"], &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, course)
}

func (h *AdminHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	if err := h.courses.DeleteCourse(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", services.DefaultLogLimit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	page, err := h.admin.ListGenerationLogs(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, page)
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, stats)
}
