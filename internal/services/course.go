package services

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/coursebase/apiserver/internal/storage"
	"github.com/coursebase/apiserver/types"
	"github.com/google/uuid"
)

// CourseRepository defines persistence operations for courses.
type CourseRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.Course, int, error)
	Get(ctx context.Context, id int) (types.Course, error)
	Create(ctx context.Context, course types.Course) (types.Course, error)
	Enroll(ctx context.Context, courseID, studentID int) error
	SetMediaKey(ctx context.Context, courseID int, key string) error
	CountCourses(ctx context.Context) (int, error)
	CountEnrollments(ctx context.Context) (int, error)
}

// CourseService encapsulates course use-cases.
type CourseService struct {
	repo    CourseRepository
	storage *storage.Storage
}

func NewCourseService(repo CourseRepository, media *storage.Storage) *CourseService {
	return &CourseService{repo: repo, storage: media}
}

func (s *CourseService) List(ctx context.Context, offset, limit int) ([]types.Course, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, offset, limit)
}

func (s *CourseService) Get(ctx context.Context, id int) (types.Course, error) {
	return s.repo.Get(ctx, id)
}

func (s *CourseService) Create(ctx context.Context, course types.Course) (types.Course, error) {
	return s.repo.Create(ctx, course)
}

// Enroll adds the student to the course. Looks the course up first so a
// missing course surfaces as not-found rather than a silent no-op, then
// returns the refreshed record.
func (s *CourseService) Enroll(ctx context.Context, courseID, studentID int) (types.Course, error) {
	if _, err := s.repo.Get(ctx, courseID); err != nil {
		return types.Course{}, err
	}
	if err := s.repo.Enroll(ctx, courseID, studentID); err != nil {
		return types.Course{}, err
	}
	return s.repo.Get(ctx, courseID)
}

// AttachMedia stores a media file for the course in object storage under a
// generated key and records the key on the course row.
func (s *CourseService) AttachMedia(ctx context.Context, courseID int, filename string, r io.Reader, size int64, contentType string) (string, error) {
	if _, err := s.repo.Get(ctx, courseID); err != nil {
		return "", err
	}

	key := fmt.Sprintf("courses/%d/%s%s", courseID, uuid.NewString(), path.Ext(filename))
	if err := s.storage.Put(ctx, key, r, size, contentType); err != nil {
		return "", fmt.Errorf("store media object: %w", err)
	}

	if err := s.repo.SetMediaKey(ctx, courseID, key); err != nil {
		return "", err
	}
	return key, nil
}
