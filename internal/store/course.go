package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/coursebase/apiserver/types"
)

// CourseRepository handles persistence for courses and enrollments.
type CourseRepository struct {
	db *sql.DB
}

func NewCourseRepository(db *sql.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) List(ctx context.Context, offset, limit int) ([]types.Course, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	const countQuery = `SELECT COUNT(1) FROM courses`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT id, title, description, duration, price, instructor_id, media_key, created_at, updated_at
		FROM courses
		ORDER BY id
		OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, listQuery, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	courses := make([]types.Course, 0, limit)
	for rows.Next() {
		var course types.Course
		if err := rows.Scan(
			&course.ID,
			&course.Title,
			&course.Description,
			&course.Duration,
			&course.Price,
			&course.InstructorID,
			&course.MediaKey,
			&course.CreatedAt,
			&course.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		courses = append(courses, course)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range courses {
		students, err := r.listStudents(ctx, courses[i].ID)
		if err != nil {
			return nil, 0, err
		}
		courses[i].Students = students
	}

	return courses, total, nil
}

func (r *CourseRepository) Get(ctx context.Context, id int) (types.Course, error) {
	const query = `
		SELECT id, title, description, duration, price, instructor_id, media_key, created_at, updated_at
		FROM courses
		WHERE id = $1`
	var course types.Course
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&course.ID,
		&course.Title,
		&course.Description,
		&course.Duration,
		&course.Price,
		&course.InstructorID,
		&course.MediaKey,
		&course.CreatedAt,
		&course.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Course{}, ErrNotFound
		}
		return types.Course{}, err
	}

	students, err := r.listStudents(ctx, course.ID)
	if err != nil {
		return types.Course{}, err
	}
	course.Students = students
	return course, nil
}

func (r *CourseRepository) Create(ctx context.Context, course types.Course) (types.Course, error) {
	now := time.Now()
	course.CreatedAt = now
	course.UpdatedAt = now

	const query = `
		INSERT INTO courses (title, description, duration, price, instructor_id, media_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		course.Title,
		course.Description,
		course.Duration,
		course.Price,
		course.InstructorID,
		course.MediaKey,
		course.CreatedAt,
		course.UpdatedAt,
	).Scan(&course.ID); err != nil {
		return types.Course{}, err
	}
	course.Students = []int{}
	return course, nil
}

// Enroll records a student on a course. Enrolling twice is a no-op thanks to
// the primary key on (course_id, student_id).
func (r *CourseRepository) Enroll(ctx context.Context, courseID, studentID int) error {
	const query = `
		INSERT INTO enrollments (course_id, student_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (course_id, student_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, courseID, studentID, time.Now())
	return err
}

// SetMediaKey records the object-storage key of the course's media upload.
func (r *CourseRepository) SetMediaKey(ctx context.Context, courseID int, key string) error {
	const query = `
		UPDATE courses
		SET media_key = $1,
			updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, key, time.Now(), courseID)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func (r *CourseRepository) CountCourses(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(1) FROM courses`
	var total int
	if err := r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *CourseRepository) CountEnrollments(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(1) FROM enrollments`
	var total int
	if err := r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *CourseRepository) listStudents(ctx context.Context, courseID int) ([]int, error) {
	const query = `
		SELECT student_id
		FROM enrollments
		WHERE course_id = $1
		ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := make([]int, 0, 4)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		students = append(students, id)
	}
	return students, rows.Err()
}
