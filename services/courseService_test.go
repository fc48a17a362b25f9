package services

import (
	"context"
	"testing"

	"coursequiz/db"
	"coursequiz/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseLifecycle(t *testing.T) {
	ctx := context.Background()
	service := NewCourseService(db.NewMemoryStore().Courses())

	course, err := service.CreateCourse(ctx, &models.CreateCourseRequest{Code: " CS201 ", Name: "Data Structures"})
	require.NoError(t, err)
	assert.Equal(t, "CS201", course.Code)

	_, err = service.CreateCourse(ctx, &models.CreateCourseRequest{Code: "CS201", Name: "Again"})
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = service.CreateCourse(ctx, &models.CreateCourseRequest{Name: "No code"})
	assert.ErrorIs(t, err, models.ErrValidation)

	name := "Algorithms and Data Structures"
	updated, err := service.UpdateCourse(ctx, course.ID, &models.UpdateCourseRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, "CS201", updated.Code)

	_, err = service.UpdateCourse(ctx, course.ID, &models.UpdateCourseRequest{})
	assert.ErrorIs(t, err, models.ErrValidation)

	courses, err := service.ListCourses(ctx)
	require.NoError(t, err)
	assert.Len(t, courses, 1)

	require.NoError(t, service.DeleteCourse(ctx, course.ID))
	_, err = service.GetCourse(ctx, course.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, service.DeleteCourse(ctx, course.ID), models.ErrNotFound)
}
