package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/coursebase/apiserver/internal/services"
	"github.com/coursebase/apiserver/internal/store"
	"github.com/coursebase/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	defaultPage        = 1
	defaultLimit       = 20
	maxLimit           = 100
	maxMultipartMemory = 32 << 20
	maxMediaBytes      = 64 << 20
	formFieldMedia     = "media"
)

// CourseHandler provides HTTP handlers for courses.
type CourseHandler struct {
	courseService *services.CourseService
}

// NewCourseHandler constructs a handler with the provided service.
func NewCourseHandler(courseService *services.CourseService) *CourseHandler {
	return &CourseHandler{courseService: courseService}
}

// CourseRouter registers course routes on the given router. Creation and
// media upload are instructor-only; enrollment is student-only.
func CourseRouter(
	r chi.Router,
	courseService *services.CourseService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewCourseHandler(courseService)

	r.Get("/", handler.ListCourses)
	r.With(authMiddleware, RequireRole(types.RoleInstructor)).Post("/", handler.CreateCourse)
	r.Route("/{courseID}", func(r chi.Router) {
		r.Get("/", handler.GetCourse)
		r.With(authMiddleware, RequireRole(types.RoleStudent)).Post("/enroll", handler.Enroll)
		r.With(authMiddleware, RequireRole(types.RoleInstructor)).Post("/media", handler.UploadMedia)
	})
}

func (h *CourseHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.courseService.List(r.Context(), offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list courses")
		return
	}

	writeJSON(w, http.StatusOK, CourseListResponse{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	id, err := parseCourseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	course, err := h.courseService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Course not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch course")
		return
	}

	writeJSON(w, http.StatusOK, course)
}

func (h *CourseHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CourseUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	created, err := h.courseService.Create(r.Context(), types.Course{
		Title:        req.Title,
		Description:  req.Description,
		Duration:     req.Duration,
		Price:        req.Price,
		InstructorID: claims.UserID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create course")
		return
	}

	writeJSON(w, http.StatusOK, created)
}

func (h *CourseHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseCourseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	course, err := h.courseService.Enroll(r.Context(), id, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Course not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to enroll")
		return
	}

	writeJSON(w, http.StatusOK, EnrollResponse{
		Message: "Enrolled successfully",
		Course:  course,
	})
}

func (h *CourseHandler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	id, err := parseCourseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(formFieldMedia)
	if err != nil {
		writeError(w, http.StatusBadRequest, "media file is required")
		return
	}
	defer file.Close()

	if header.Size > maxMediaBytes {
		writeError(w, http.StatusBadRequest, "uploaded file too large")
		return
	}

	contentType := header.Header.Get("Content-Type")
	key, err := h.courseService.AttachMedia(r.Context(), id, header.Filename, file, header.Size, contentType)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Course not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to store media")
		return
	}

	writeJSON(w, http.StatusOK, MediaResponse{MediaKey: key})
}

// CourseUpsertRequest is the JSON payload for course creation.
type CourseUpsertRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Duration    string  `json:"duration"`
	Price       float64 `json:"price"`
}

// CourseListResponse is the paginated list response payload.
type CourseListResponse struct {
	Items []types.Course `json:"items"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
	Total int            `json:"total"`
}

type EnrollResponse struct {
	Message string       `json:"message"`
	Course  types.Course `json:"course"`
}

type MediaResponse struct {
	MediaKey string `json:"media_key"`
}

func parsePagination(r *http.Request) (page, limit, offset int, err error) {
	page = defaultPage
	limit = defaultLimit

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, 0, errors.New("invalid page")
		}
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, 0, errors.New("invalid limit")
		}
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	offset = (page - 1) * limit
	return page, limit, offset, nil
}

func parseCourseID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "courseID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid course id")
	}
	return id, nil
}
