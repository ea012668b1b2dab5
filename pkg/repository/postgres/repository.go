/*
Copyright 2026 The voxelforge Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package postgres implements the persistence adapter (C3) against
// PostgreSQL via sqlx and the pgx/v5 stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/voxelforge/buildcore/pkg/apierrors"
	"github.com/voxelforge/buildcore/pkg/domain"
	"github.com/voxelforge/buildcore/pkg/geometry"
	"github.com/voxelforge/buildcore/pkg/repository"
	"github.com/voxelforge/buildcore/pkg/repository/sqlutil"
)

// uniqueViolation is PostgreSQL's SQLSTATE for a unique-constraint
// violation, raised when two concurrent appends race the same
// (build_id, task_order) pair.
const uniqueViolation = "23505"

// Repository implements repository.Repository against PostgreSQL.
type Repository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// New builds a Repository over an existing connection pool.
func New(db *sqlx.DB, logger *zap.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

var _ repository.Repository = (*Repository)(nil)

type buildRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	World       string         `db:"world"`
	Status      string         `db:"status"`
	CreatedAt   sql.NullTime   `db:"created_at"`
	CompletedAt sql.NullTime   `db:"completed_at"`
}

func (r buildRow) toDomain() *domain.Build {
	b := &domain.Build{
		ID:     r.ID,
		Name:   r.Name,
		World:  r.World,
		Status: domain.BuildStatus(r.Status),
	}
	if r.Description.Valid {
		b.Description = r.Description.String
	}
	if r.CreatedAt.Valid {
		b.CreatedAt = r.CreatedAt.Time
	}
	b.CompletedAt = sqlutil.FromNullTime(r.CompletedAt)
	return b
}

// CreateBuild stores a new build row with its initial status.
func (r *Repository) CreateBuild(ctx context.Context, build *domain.Build) (*domain.Build, error) {
	const q = `
		INSERT INTO builds (id, name, description, world, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, q,
		build.ID, build.Name, sqlutil.ToNullStringValue(build.Description),
		build.World, string(build.Status), build.CreatedAt)
	if err != nil {
		return nil, wrapStorageErr("create_build", err)
	}
	return build, nil
}

// GetBuild fetches a build by id.
func (r *Repository) GetBuild(ctx context.Context, id string) (*domain.Build, error) {
	const q = `
		SELECT id, name, description, world, status, created_at, completed_at
		FROM builds WHERE id = $1`
	var row buildRow
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, wrapStorageErr("get_build", err)
	}
	return row.toDomain(), nil
}

// UpdateBuildStatus sets the build's status and, on a terminal status,
// its completion timestamp.
func (r *Repository) UpdateBuildStatus(ctx context.Context, id string, status domain.BuildStatus, completedAt *time.Time) error {
	const q = `UPDATE builds SET status = $1, completed_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, q, string(status), sqlutil.ToNullTime(completedAt), id)
	if err != nil {
		return wrapStorageErr("update_build_status", err)
	}
	return checkAffected(res)
}

// DeleteBuild removes a build; ON DELETE CASCADE removes its tasks.
func (r *Repository) DeleteBuild(ctx context.Context, id string) error {
	const q = `DELETE FROM builds WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return wrapStorageErr("delete_build", err)
	}
	return checkAffected(res)
}

// ListBuildsIntersecting returns, ordered by created_at ascending, the
// builds in world that own at least one task intersecting box.
func (r *Repository) ListBuildsIntersecting(ctx context.Context, world string, box geometry.BoundingBox) ([]*domain.Build, error) {
	const q = `
		SELECT DISTINCT b.id, b.name, b.description, b.world, b.status, b.created_at, b.completed_at
		FROM builds b
		JOIN tasks t ON t.build_id = b.id
		WHERE b.world = $1
		  AND t.min_x <= $2 AND t.max_x >= $3
		  AND t.min_y <= $4 AND t.max_y >= $5
		  AND t.min_z <= $6 AND t.max_z >= $7
		ORDER BY b.created_at ASC, b.id ASC`
	var rows []buildRow
	err := r.db.SelectContext(ctx, &rows, q, world,
		box.MaxX, box.MinX, box.MaxY, box.MinY, box.MaxZ, box.MinZ)
	if err != nil {
		return nil, wrapStorageErr("list_builds_intersecting", err)
	}
	out := make([]*domain.Build, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrapStorageErr("rows_affected", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func wrapStorageErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apierrors.NewConflictProblem("task", "task_order", pgErr.ConstraintName)
	}
	return apierrors.NewStorageError(op, err)
}

func marshalTaskData(data map[string]interface{}) ([]byte, error) {
	if data == nil {
		data = map[string]interface{}{}
	}
	return json.Marshal(data)
}

func unmarshalTaskData(raw []byte) (map[string]interface{}, error) {
	if len(raw) == 0 {
		return map[string]interface{}{}, nil
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode task_data: %w", err)
	}
	return data, nil
}
