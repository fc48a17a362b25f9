package main

import (
	"net/http"

	"coursequiz/config"
	"coursequiz/db"
	"coursequiz/handlers"
	"coursequiz/services"
	"coursequiz/services/dedup"
	"coursequiz/services/generator"
	"coursequiz/services/grading"
	"coursequiz/services/llm"
	"coursequiz/services/pinecone"
	"coursequiz/services/quiz"
	"coursequiz/services/similarity"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	config.ConfigureLogging(cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	chat, err := newChatClient(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	oracle, err := similarity.NewRestOracle(cfg.EmbeddingAPIURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel, cfg.EmbeddingTimeout)
	if err != nil {
		log.Fatalf("Failed to initialize embedding client: %v", err)
	}
	if !oracle.Enabled() {
		log.Warn("EMBEDDING_API_URL or EMBEDDING_API_KEY not set, deduplication falls back to exact text matches")
	}

	var vectors similarity.VectorStore
	if cfg.PineconeEnabled() {
		pc, err := pinecone.NewService(cfg.PineconeAPIKey, cfg.PineconeIndexName, cfg.PineconeNamespace)
		if err != nil {
			log.Fatalf("Failed to initialize Pinecone service: %v", err)
		}
		vectors = pc
	}

	authService := services.NewAuthService(store.Users(), cfg.JWTSecret, cfg.JWTTTL, cfg.AllowAdminRegistration)
	courseService := services.NewCourseService(store.Courses())
	questionService := services.NewQuestionService(store)
	adminService := services.NewAdminService(store)

	quizService := quiz.NewService(
		store,
		generator.NewGenerator(chat, cfg.GenerationTimeout),
		dedup.NewDeduplicator(store.Questions(), oracle, vectors),
		grading.NewGrader(chat, cfg.GradingTimeout),
		vectors,
	)

	authenticator := handlers.NewAuthenticator(authService)

	router := mux.NewRouter()

	router.Use(corsMiddleware)
	router.Use(jsonMiddleware)
	router.Use(handlers.RequestLogger)

	router.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("OPTIONS")

	handlers.NewAuthHandler(authService, authenticator).RegisterRoutes(router)
	handlers.NewCatalogHandler(courseService, questionService).RegisterRoutes(router)
	handlers.NewQuizHandler(quizService, authenticator).RegisterRoutes(router)
	handlers.NewAdminHandler(questionService, courseService, adminService, authenticator).RegisterRoutes(router)

	router.HandleFunc("/health", healthCheckHandler).Methods("GET")

	addr := ":" + cfg.Port
	log.Infof("Server starting on port %s", cfg.Port)

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

func openStore(cfg *config.Config) (db.Store, error) {
	switch cfg.DBDriver {
	case config.DriverMemory:
		log.Warn("Using the in-memory store, data is lost on restart")
		return db.NewMemoryStore(), nil
	case config.DriverPostgres:
		if cfg.DatabaseURL == "" {
			log.Fatal("DB_URL environment variable is required")
		}
		return db.NewPostgresStore(cfg.DatabaseURL)
	}
	log.Fatalf("Unknown DB_DRIVER %q", cfg.DBDriver)
	return nil, nil
}

func newChatClient(cfg *config.Config) (llm.ChatClient, error) {
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			log.Fatal("ANTHROPIC_API_KEY environment variable is required")
		}
		return llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	case config.ProviderOpenAI:
		if cfg.LLMAPIKey == "" {
			log.Fatal("LLM_API_KEY environment variable is required")
		}
		return llm.NewOpenAIClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
	}
	log.Fatalf("Unknown LLM_PROVIDER %q", cfg.LLMProvider)
	return nil, nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Expose-Headers", "*")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "healthy"}`))
}
