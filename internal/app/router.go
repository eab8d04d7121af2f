package app

import (
	"database/sql"
	"net/http"
	"time"

	"lecturequiz/internal/app/observability"
	"lecturequiz/internal/auth"
	"lecturequiz/internal/question"
	"lecturequiz/internal/quiz"
	"lecturequiz/internal/subject"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(cfg Config, db *sql.DB) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	collector := observability.NewCollector(db)
	r.Use(collector.Middleware)

	authSvc := auth.NewService(db, auth.ServiceConfig{
		JWTSecret:      cfg.JWTSecret,
		TokenTTL:       time.Duration(cfg.TokenTTLHours) * time.Hour,
		BcryptCost:     cfg.BcryptCost,
		BootstrapToken: cfg.BootstrapToken,
	})
	authHandler := auth.NewHandler(authSvc)

	subjectHandler := subject.NewHandler(subject.NewService(db))
	quizHandler := quiz.NewHandler(quiz.NewService(db))
	questionHandler := question.NewHandler(question.NewService(db))

	authLimiter := NewIPRateLimiter(cfg.AuthRateLimitPerMin, time.Minute)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/metrics", collector.MetricsHandler)

	r.Route("/api/v1", func(api chi.Router) {
		api.Group(func(limited chi.Router) {
			limited.Use(RateLimitMiddleware(authLimiter))
			limited.Post("/bootstrap/init", authHandler.BootstrapInit)
			limited.Post("/auth/login", authHandler.Login)
		})

		api.Get("/subjects", subjectHandler.ListSubjects)
		api.Get("/quizzes", quizHandler.ListQuizzes)
		api.Get("/quizzes/{id}", quizHandler.GetQuiz)
		api.Get("/quizzes/{id}/take", quizHandler.TakeQuiz)
		api.Post("/questions/{id}/answer", questionHandler.CheckAnswer)

		api.Group(func(secure chi.Router) {
			secure.Use(authHandler.RequireTeacher)
			secure.Get("/auth/me", authHandler.Me)
			secure.Post("/auth/set-password", authHandler.SetPassword)

			secure.Post("/subjects", subjectHandler.CreateSubject)

			secure.Post("/quizzes", quizHandler.CreateQuiz)
			secure.Put("/quizzes/{id}", quizHandler.UpdateQuiz)
			secure.Delete("/quizzes/{id}", quizHandler.DeleteQuiz)
			secure.Post("/quizzes/bulk", quizHandler.BulkCreate)
			secure.Post("/quizzes/import", quizHandler.ImportExcel)
			secure.Get("/quizzes/{id}/export", quizHandler.ExportExcel)

			secure.Post("/quizzes/{id}/questions", questionHandler.AddQuestion)
			secure.Put("/questions/{id}", questionHandler.UpdateQuestion)
			secure.Delete("/questions/{id}", questionHandler.DeleteQuestion)
			secure.Put("/questions/{id}/reorder", questionHandler.Reorder)
		})
	})

	return r
}
