package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/meetsight/attendance/internal/database"
	"github.com/meetsight/attendance/internal/roster"
)

// RosterHandler handles student registration endpoints.
type RosterHandler struct {
	service *roster.Service
}

// NewRosterHandler creates a new roster handler.
func NewRosterHandler(service *roster.Service) *RosterHandler {
	return &RosterHandler{service: service}
}

// StudentResponse is the JSON shape of a registered student.
type StudentResponse struct {
	StudentID string    `json:"student_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func toStudentResponse(s *database.Student) StudentResponse {
	return StudentResponse{
		StudentID: s.StudentID,
		Name:      s.Name,
		CreatedAt: s.CreatedAt,
	}
}

// Register enrolls a student from a multipart form with name, student_id
// and a single-face photo.
func (h *RosterHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	name := r.FormValue("name")
	studentID := r.FormValue("student_id")
	if name == "" || studentID == "" {
		respondError(w, http.StatusBadRequest, "name and student_id are required")
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		respondError(w, http.StatusBadRequest, "photo is required")
		return
	}
	defer file.Close()

	photo, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read photo")
		return
	}

	student, err := h.service.Register(r.Context(), name, studentID, photo, header.Filename)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrDuplicateStudent):
			respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, roster.ErrInvalidRegistration):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("registration failed for %s: %v", sanitizeForLog(studentID), err)
			respondError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	respondJSON(w, http.StatusCreated, toStudentResponse(student))
}

// List returns registered students, optionally filtered by ?q= name query.
func (h *RosterHandler) List(w http.ResponseWriter, r *http.Request) {
	students, err := h.service.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list students")
		return
	}

	out := make([]StudentResponse, 0, len(students))
	for i := range students {
		out = append(out, toStudentResponse(&students[i]))
	}
	respondJSON(w, http.StatusOK, out)
}

// Delete removes a student and their stored embedding and photo.
func (h *RosterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	if err := h.service.Delete(r.Context(), studentID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"deleted": studentID})
}
