package audit

import (
	"context"
	"fmt"

	"github.com/voxelforge/buildcore/pkg/domain"
	"github.com/voxelforge/buildcore/pkg/geometry"
	"github.com/voxelforge/buildcore/pkg/metrics"
	"github.com/voxelforge/buildcore/pkg/taskdata"
)

// Severity classifies an audit Issue.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue is one finding from AuditBuild.
type Issue struct {
	Rule       string
	Severity   Severity
	Message    string
	TaskOrders []int
}

// AuditSummary counts Issues by severity.
type AuditSummary struct {
	Warnings int
	Errors   int
}

// AuditReport is the full response to an audit request.
type AuditReport struct {
	BuildID string
	Issues  []Issue
	Summary AuditSummary
}

// AuditBuild runs the fixed set of static checks over buildID's current
// queue. Audit is pure read-only: it never mutates a task or build.
func (s *Service) AuditBuild(ctx context.Context, buildID string) (*AuditReport, error) {
	build, err := s.repo.GetBuild(ctx, buildID)
	if err != nil {
		return nil, fmt.Errorf("audit build: %w", err)
	}
	tasks, err := s.repo.GetTasksOrdered(ctx, buildID)
	if err != nil {
		return nil, fmt.Errorf("audit build: %w", err)
	}

	var issues []Issue
	issues = append(issues, checkDuplicateOrder(tasks)...)
	issues = append(issues, checkStairDirection(tasks)...)
	issues = append(issues, checkFillOverwritesStructure(tasks)...)
	issues = append(issues, checkDoorBlockedByLaterFill(tasks)...)
	issues = append(issues, checkStairsWithoutSupport(tasks)...)

	report := &AuditReport{BuildID: build.ID, Issues: issues}
	for _, issue := range issues {
		metrics.RecordAuditWarning(issue.Rule, string(issue.Severity))
		switch issue.Severity {
		case SeverityWarning:
			report.Summary.Warnings++
		case SeverityError:
			report.Summary.Errors++
		}
	}
	return report, nil
}

func addIssue(issues []Issue, rule string, severity Severity, message string, orders ...int) []Issue {
	return append(issues, Issue{Rule: rule, Severity: severity, Message: message, TaskOrders: orders})
}

// checkDuplicateOrder is a defensive invariant-verifier: the persistence
// adapter guarantees task_order density and uniqueness, so this should
// never fire in normal operation. It runs first so a corrupted store
// surfaces clearly instead of confusing the bbox-based rules below.
func checkDuplicateOrder(tasks []*domain.Task) []Issue {
	var issues []Issue
	seen := make(map[int]bool, len(tasks))
	for _, t := range tasks {
		if seen[t.Order] {
			issues = addIssue(issues, "duplicate_order_checkpoint", SeverityError,
				fmt.Sprintf("task_order %d appears more than once in this build's queue", t.Order), t.Order)
			continue
		}
		seen[t.Order] = true
	}
	return issues
}

// checkStairDirection flags a PREFAB_STAIRS run whose rise is steeper
// than its run along the travel axis: travel along X with xSpan < zSpan
// (and symmetrically for Z) computes slope = ySpan/xSpan (or ySpan/zSpan)
// and warns when slope > 1.
func checkStairDirection(tasks []*domain.Task) []Issue {
	var issues []Issue
	for _, t := range tasks {
		if t.Type != domain.TaskPrefabStairs || t.Bounds == nil {
			continue
		}
		direction, ok := taskdata.String(t.Data, "staircase_direction")
		if !ok {
			continue
		}
		box := *t.Bounds
		xSpan, ySpan, zSpan := box.XSpan(), box.YSpan(), box.ZSpan()

		var run int
		switch direction {
		case "east", "west":
			run = xSpan
			if xSpan >= zSpan {
				continue
			}
		case "north", "south":
			run = zSpan
			if zSpan >= xSpan {
				continue
			}
		default:
			continue
		}
		if run == 0 {
			continue
		}
		slope := float64(ySpan) / float64(run)
		if slope > 1 {
			issues = addIssue(issues, "stair_direction_mismatch", SeverityWarning,
				fmt.Sprintf("staircase at order %d rises steeper than its run (slope %.2f along %s)", t.Order, slope, direction),
				t.Order)
		}
	}
	return issues
}

// checkFillOverwritesStructure warns when a BLOCK_FILL's bbox intersects
// an earlier, non-fill task's bbox. Fill-vs-fill overlaps are considered
// intentional layering and skipped.
func checkFillOverwritesStructure(tasks []*domain.Task) []Issue {
	var issues []Issue
	for i, later := range tasks {
		if later.Type != domain.TaskBlockFill || later.Bounds == nil {
			continue
		}
		for j := 0; j < i; j++ {
			earlier := tasks[j]
			if earlier.Type == domain.TaskBlockFill || earlier.Bounds == nil {
				continue
			}
			if later.Bounds.Intersects(*earlier.Bounds) {
				issues = addIssue(issues, "fill_overwrites_structure", SeverityWarning,
					fmt.Sprintf("fill at order %d overlaps earlier task at order %d", later.Order, earlier.Order),
					later.Order, earlier.Order)
			}
		}
	}
	return issues
}

var doorLikeTypes = map[domain.TaskType]bool{
	domain.TaskPrefabDoor:   true,
	domain.TaskPrefabWindow: true,
	domain.TaskPrefabLadder: true,
}

// checkDoorBlockedByLaterFill is the symmetric counterpart of
// checkFillOverwritesStructure: a door/window/ladder whose footprint is
// later buried under a BLOCK_FILL or BLOCK_SET is almost certainly a
// planning mistake, not intentional layering.
func checkDoorBlockedByLaterFill(tasks []*domain.Task) []Issue {
	var issues []Issue
	for i, opening := range tasks {
		if !doorLikeTypes[opening.Type] || opening.Bounds == nil {
			continue
		}
		for j := i + 1; j < len(tasks); j++ {
			later := tasks[j]
			if later.Bounds == nil {
				continue
			}
			if later.Type != domain.TaskBlockFill && later.Type != domain.TaskBlockSet {
				continue
			}
			if later.Bounds.Intersects(*opening.Bounds) {
				issues = addIssue(issues, "door_blocked_by_later_fill", SeverityWarning,
					fmt.Sprintf("%s at order %d is later buried by task at order %d", opening.Type, opening.Order, later.Order),
					opening.Order, later.Order)
			}
		}
	}
	return issues
}

// checkStairsWithoutSupport is purely advisory: a PREFAB_STAIRS task
// with fill_support=false whose bbox's lower face touches no other
// task's bbox is flagged at info severity. It never blocks execution.
func checkStairsWithoutSupport(tasks []*domain.Task) []Issue {
	var issues []Issue
	for _, t := range tasks {
		if t.Type != domain.TaskPrefabStairs || t.Bounds == nil {
			continue
		}
		if taskdata.Bool(t.Data, "fill_support", true) {
			continue
		}
		if hasSupport(t, tasks) {
			continue
		}
		issues = addIssue(issues, "stairs_without_support", SeverityInfo,
			fmt.Sprintf("staircase at order %d has fill_support=false and no task touches its base", t.Order),
			t.Order)
	}
	return issues
}

func hasSupport(stairs *domain.Task, tasks []*domain.Task) bool {
	base := geometry.New(stairs.Bounds.MinX, stairs.Bounds.MinY-1, stairs.Bounds.MinZ,
		stairs.Bounds.MaxX, stairs.Bounds.MinY-1, stairs.Bounds.MaxZ)
	for _, other := range tasks {
		if other.ID == stairs.ID || other.Bounds == nil {
			continue
		}
		if other.Bounds.Intersects(base) {
			return true
		}
	}
	return false
}
