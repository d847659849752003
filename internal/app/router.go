package app

import (
	"net/http"

	"taskManager/internal/config"
	"taskManager/internal/handlers"
	"taskManager/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func NewRouter(h *handlers.TaskHandler, cfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recover)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))
	r.Use(middleware.RateLimit(cfg.RateLimit))

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.GetTasks)          // GET /tasks
		r.Post("/", h.PostTask)         // POST /tasks
		r.Delete("/", h.DeleteAllTasks) // DELETE /tasks

		r.Get("/{id}", h.GetTaskByID)       // GET /tasks/{id}
		r.Delete("/{id}", h.DeleteTaskByID) // DELETE /tasks/{id}
	})

	r.Route("/epics", func(r chi.Router) {
		r.Get("/", h.GetEpics)
		r.Post("/", h.PostEpic)
		r.Delete("/", h.DeleteAllEpics)

		r.Get("/{id}", h.GetEpicByID)
		r.Get("/{id}/subtasks", h.GetEpicSubtasks) // GET /epics/{id}/subtasks
		r.Delete("/{id}", h.DeleteEpicByID)
	})

	r.Route("/subtasks", func(r chi.Router) {
		r.Get("/", h.GetSubtasks)
		r.Post("/", h.PostSubtask)
		r.Delete("/", h.DeleteAllSubtasks)

		r.Get("/{id}", h.GetSubtaskByID)
		r.Delete("/{id}", h.DeleteSubtaskByID)
	})

	r.Get("/history", h.GetHistory)
	r.Get("/prioritized", h.GetPrioritized)
	r.Get("/health", h.HealthCheck)

	return otelhttp.NewHandler(r, "task-manager")
}
