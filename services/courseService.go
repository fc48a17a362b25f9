package services

import (
	"context"
	"fmt"
	"strings"

	"coursequiz/db"
	"coursequiz/models"

	log "github.com/sirupsen/logrus"
)

type CourseService struct {
	repo db.CourseRepository
}

func NewCourseService(repo db.CourseRepository) *CourseService {
	return &CourseService{repo: repo}
}

func (s *CourseService) CreateCourse(ctx context.Context, req *models.CreateCourseRequest) (*models.Course, error) {
	log.Infof("Starting course creation")

	if err := models.Validate(req); err != nil {
		log.Errorf("Course creation validation failed: %v", err)
		return nil, err
	}

	course := &models.Course{
		Code:        strings.TrimSpace(req.Code),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
	}
	if err := s.repo.CreateCourse(ctx, course); err != nil {
		log.Errorf("Failed to create course %s: %v", course.Code, err)
		return nil, err
	}

	log.Infof("Successfully created course %s with ID %s", course.Code, course.ID)
	return course, nil
}

func (s *CourseService) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	return s.repo.GetCourseByID(ctx, id)
}

func (s *CourseService) ListCourses(ctx context.Context) ([]*models.Course, error) {
	courses, err := s.repo.GetAllCourses(ctx)
	if err != nil {
		log.Errorf("Failed to list courses: %v", err)
		return nil, fmt.Errorf("failed to get courses: %w", err)
	}
	return courses, nil
}

func (s *CourseService) UpdateCourse(ctx context.Context, id string, req *models.UpdateCourseRequest) (*models.Course, error) {
	log.Infof("Starting update course with ID %s", id)

	if err := models.Validate(req); err != nil {
		return nil, err
	}
	if req.Code == nil && req.Name == nil && req.Description == nil {
		return nil, fmt.Errorf("%w: at least one field must be provided for update", models.ErrValidation)
	}

	course, err := s.repo.GetCourseByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Code != nil {
		course.Code = strings.TrimSpace(*req.Code)
	}
	if req.Name != nil {
		course.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		course.Description = strings.TrimSpace(*req.Description)
	}

	if err := s.repo.UpdateCourse(ctx, course); err != nil {
		log.Errorf("Failed to update course %s: %v", id, err)
		return nil, err
	}

	log.Infof("Successfully updated course with ID %s", id)
	return s.repo.GetCourseByID(ctx, id)
}

func (s *CourseService) DeleteCourse(ctx context.Context, id string) error {
	log.Infof("Starting delete course with ID %s", id)

	if err := s.repo.DeleteCourse(ctx, id); err != nil {
		log.Errorf("Failed to delete course %s: %v", id, err)
		return err
	}

	log.Infof("Successfully deleted course with ID %s", id)
	return nil
}
