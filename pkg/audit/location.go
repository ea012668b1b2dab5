// Package audit implements the read-only location/spatial-query and lint
// engine (C8): finding builds that occupy a region of the world, and
// statically analyzing a build's pending task queue for likely mistakes
// before any of it executes.
package audit

import (
	"context"
	"fmt"

	"github.com/voxelforge/buildcore/pkg/apierrors"
	"github.com/voxelforge/buildcore/pkg/domain"
	"github.com/voxelforge/buildcore/pkg/geometry"
	"github.com/voxelforge/buildcore/pkg/repository"
)

// LocationResult is one build returned by a location query, paired with
// only the tasks whose bounds intersect the query box.
type LocationResult struct {
	Build             *domain.Build
	IntersectingTasks []*domain.Task
}

// LocationReport is the full response to a location query.
type LocationReport struct {
	QueryArea      geometry.BoundingBox
	BuildCount     int
	TotalTaskCount int
	Builds         []LocationResult
}

// Service answers location queries and runs audit checks against a
// repository.Repository.
type Service struct {
	repo repository.Repository
}

// New builds a Service over repo.
func New(repo repository.Repository) *Service {
	return &Service{repo: repo}
}

// QueryLocation finds builds in world whose tasks intersect box. When
// includeInProgress is false, only COMPLETED builds are considered.
// Builds are returned in created_at ascending order (the repository
// guarantees this); for each, only its intersecting tasks are attached.
func (s *Service) QueryLocation(ctx context.Context, world string, box geometry.BoundingBox, includeInProgress bool) (*LocationReport, error) {
	if box.MinX > box.MaxX || box.MinY > box.MaxY || box.MinZ > box.MaxZ {
		verr := apierrors.NewValidationError("location_query", "query box is malformed")
		verr.AddFieldError("bbox", "min must not exceed max on any axis")
		return nil, verr
	}

	builds, err := s.repo.ListBuildsIntersecting(ctx, world, box)
	if err != nil {
		return nil, fmt.Errorf("location query: %w", err)
	}

	report := &LocationReport{QueryArea: box, Builds: make([]LocationResult, 0, len(builds))}
	for _, build := range builds {
		if !includeInProgress && build.Status != domain.BuildCompleted {
			continue
		}
		tasks, err := s.repo.GetTasksOrdered(ctx, build.ID)
		if err != nil {
			return nil, fmt.Errorf("location query: %w", err)
		}
		intersecting := make([]*domain.Task, 0, len(tasks))
		for _, t := range tasks {
			if t.Bounds != nil && t.Bounds.Intersects(box) {
				intersecting = append(intersecting, t)
			}
		}
		report.Builds = append(report.Builds, LocationResult{Build: build, IntersectingTasks: intersecting})
		report.TotalTaskCount += len(intersecting)
	}
	report.BuildCount = len(report.Builds)
	return report, nil
}
