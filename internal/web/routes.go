package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/meetsight/attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	rosterHandler := handlers.NewRosterHandler(s.deps.Roster)
	meetingHandler := handlers.NewMeetingHandler(s.deps.Sessions, s.deps.Processor, s.deps.Dispatcher)
	attendanceHandler := handlers.NewAttendanceHandler(s.deps.Reporter)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Students
		r.Post("/students", rosterHandler.Register)
		r.Get("/students", rosterHandler.List)
		r.Delete("/students/{studentID}", rosterHandler.Delete)

		// Meetings
		r.Post("/meetings", meetingHandler.Start)
		r.Get("/meetings", meetingHandler.List)
		r.Post("/meetings/{id}/end", meetingHandler.End)
		r.Post("/meetings/{id}/frames", meetingHandler.Frame)
		r.Get("/meetings/{id}/bot", meetingHandler.BotStatus)

		// Attendance reports
		r.Get("/meetings/{id}/report", attendanceHandler.Report)
		r.Get("/meetings/{id}/report.csv", attendanceHandler.ExportCSV)
	})
}
