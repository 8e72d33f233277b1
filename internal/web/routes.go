package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	authHandler := handlers.NewAuthHandler(s.credentials, s.sessionManager)
	attendanceHandler := handlers.NewAttendanceHandler(s.service)
	studentsHandler := handlers.NewStudentsHandler(s.service)

	s.router.Get("/api/v1/health", handlers.HealthCheck)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		// Kiosk and registration desk
		r.Post("/attendance/mark", attendanceHandler.Mark)
		r.Get("/attendance", attendanceHandler.List)
		r.Get("/attendance/export", attendanceHandler.Export)
		r.Get("/analytics", attendanceHandler.Analytics)

		r.Get("/students", studentsHandler.List)
		r.Post("/students", studentsHandler.Register)
		r.Get("/students/photo/{filename}", studentsHandler.Photo)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.sessionManager))

			r.Post("/students/delete", studentsHandler.Delete)
			r.Post("/attendance/reset", attendanceHandler.Reset)
		})
	})
}
