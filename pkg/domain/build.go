// Package domain holds the persistent entities of the build-task
// orchestration core: builds, tasks, and their lifecycle invariants.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// BuildStatus is the lifecycle state of a Build.
type BuildStatus string

const (
	BuildCreated    BuildStatus = "CREATED"
	BuildInProgress BuildStatus = "IN_PROGRESS"
	BuildCompleted  BuildStatus = "COMPLETED"
	BuildFailed     BuildStatus = "FAILED"
)

// DefaultWorld is used when a Build is created without an explicit world.
const DefaultWorld = "minecraft:overworld"

// Build is a named, persistent container of ordered tasks.
type Build struct {
	ID          string
	Name        string
	Description string
	World       string
	Status      BuildStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// NewBuild constructs a Build in status CREATED with a fresh identifier.
// name must be non-empty; the caller validates that before calling this.
func NewBuild(name, description, world string, now time.Time) *Build {
	if world == "" {
		world = DefaultWorld
	}
	return &Build{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		World:       world,
		Status:      BuildCreated,
		CreatedAt:   now,
	}
}

// IsFrozen reports whether the build rejects queue mutations.
func (b *Build) IsFrozen() bool {
	return b.Status == BuildCompleted
}
