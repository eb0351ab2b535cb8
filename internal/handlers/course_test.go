package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coursebase/apiserver/internal/services"
	"github.com/coursebase/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleGates(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Ann", "ann@x.com", "pw1", "instructor")
	env.register(t, "Bob", "bob@x.com", "pw2", "student")
	instructorToken := env.login(t, "ann@x.com", "pw1")
	studentToken := env.login(t, "bob@x.com", "pw2")

	courseBody := map[string]any{"title": "Go 101", "description": "intro", "duration": "4w", "price": 49.0}

	// Missing token is unauthorized, never a role mismatch.
	rec := env.do(t, http.MethodPost, "/courses/", "", courseBody)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Students cannot create courses.
	rec = env.do(t, http.MethodPost, "/courses/", studentToken, courseBody)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Forbidden")

	rec = env.do(t, http.MethodPost, "/courses/", instructorToken, courseBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var created types.Course
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 1, created.InstructorID)

	// Instructors cannot enroll.
	rec = env.do(t, http.MethodPost, "/courses/1/enroll", instructorToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/courses/1/enroll", studentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var enrolled EnrollResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &enrolled))
	assert.Equal(t, "Enrolled successfully", enrolled.Message)
	assert.Contains(t, enrolled.Course.Students, 2)
}

func TestEnrollMissingCourse(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Bob", "bob@x.com", "pw2", "student")
	studentToken := env.login(t, "bob@x.com", "pw2")

	rec := env.do(t, http.MethodPost, "/courses/99/enroll", studentToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyticsSummary(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Ann", "ann@x.com", "pw1", "instructor")
	env.register(t, "Bob", "bob@x.com", "pw2", "student")
	instructorToken := env.login(t, "ann@x.com", "pw1")
	studentToken := env.login(t, "bob@x.com", "pw2")

	courseBody := map[string]any{"title": "Go 101"}
	rec := env.do(t, http.MethodPost, "/courses/", instructorToken, courseBody)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, "/courses/1/enroll", studentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/analytics/summary", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary services.PlatformSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.TotalCourses)
	assert.Equal(t, 1, summary.TotalEnrollments)
}

func TestUploadMedia(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Ann", "ann@x.com", "pw1", "instructor")
	env.register(t, "Bob", "bob@x.com", "pw2", "student")
	instructorToken := env.login(t, "ann@x.com", "pw1")
	studentToken := env.login(t, "bob@x.com", "pw2")

	rec := env.do(t, http.MethodPost, "/courses/", instructorToken, map[string]any{"title": "Go 101"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("media", "intro.mp4")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake video bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/courses/1/media", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+studentToken)
	recorder := httptest.NewRecorder()
	env.router.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	req = httptest.NewRequest(http.MethodPost, "/courses/1/media", bytes.NewReader(body.Bytes()))
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+instructorToken)
	recorder = httptest.NewRecorder()
	env.router.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var resp MediaResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	assert.Contains(t, resp.MediaKey, "courses/1/")

	rec = env.do(t, http.MethodGet, "/courses/1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var course types.Course
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &course))
	assert.Equal(t, resp.MediaKey, course.MediaKey)
}
