package handlers

import (
	"net/http"

	"coursequiz/models"
	"coursequiz/services/quiz"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type QuizHandler struct {
	service *quiz.Service
	auth    *Authenticator
}

func NewQuizHandler(service *quiz.Service, auth *Authenticator) *QuizHandler {
	return &QuizHandler{service: service, auth: auth}
}

func (h *QuizHandler) RegisterRoutes(router *mux.Router) {
	sub := router.PathPrefix("/quiz").Subrouter()
	sub.Use(h.auth.RequireUser)

	sub.HandleFunc("/generate", h.GenerateQuiz).Methods("POST")
	sub.HandleFunc("/history", h.History).Methods("GET")
	sub.HandleFunc("/{id}", h.GetQuiz).Methods("GET")
	sub.HandleFunc("/{id}/start", h.StartQuiz).Methods("POST")
	sub.HandleFunc("/{id}/submit", h.SubmitQuiz).Methods("POST")
}

func (h *QuizHandler) GenerateQuiz(w http.ResponseWriter, r *http.Request) {
	log.Infof("Received quiz generation request")

	var req models.GenerateQuizRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	view, err := h.service.Generate(r.Context(), userIDFrom(r), &req)
	if err != nil {
		log.Errorf("Quiz generation failed: %v", err)
		writeServiceError(w, err)
		return
	}

	log.Infof("Quiz generation completed successfully")
	writeJSONResponse(w, http.StatusCreated, view)
}

func (h *QuizHandler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Retrieve(r.Context(), userIDFrom(r), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, view)
}

func (h *QuizHandler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Start(r.Context(), userIDFrom(r), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"message":    "Quiz started",
		"session_id": session.ID,
		"started_at": session.StartedAt,
	})
}

func (h *QuizHandler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitQuizRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	results, err := h.service.Submit(r.Context(), userIDFrom(r), mux.Vars(r)["id"], &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, results)
}

func (h *QuizHandler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.History(r.Context(), userIDFrom(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, entries)
}
