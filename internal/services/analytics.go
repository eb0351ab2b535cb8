package services

import "context"

// PlatformSummary aggregates platform-wide counts.
type PlatformSummary struct {
	TotalCourses     int `json:"totalCourses"`
	TotalEnrollments int `json:"totalEnrollments"`
}

// AnalyticsService computes aggregate statistics over courses.
type AnalyticsService struct {
	courses CourseRepository
}

func NewAnalyticsService(courses CourseRepository) *AnalyticsService {
	return &AnalyticsService{courses: courses}
}

func (s *AnalyticsService) Summary(ctx context.Context) (PlatformSummary, error) {
	totalCourses, err := s.courses.CountCourses(ctx)
	if err != nil {
		return PlatformSummary{}, err
	}
	totalEnrollments, err := s.courses.CountEnrollments(ctx)
	if err != nil {
		return PlatformSummary{}, err
	}
	return PlatformSummary{
		TotalCourses:     totalCourses,
		TotalEnrollments: totalEnrollments,
	}, nil
}
