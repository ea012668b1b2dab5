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

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/voxelforge/buildcore/pkg/domain"
	"github.com/voxelforge/buildcore/pkg/geometry"
	"github.com/voxelforge/buildcore/pkg/repository"
	"github.com/voxelforge/buildcore/pkg/repository/sqlutil"
)

type taskRow struct {
	ID           string         `db:"id"`
	BuildID      string         `db:"build_id"`
	TaskOrder    int            `db:"task_order"`
	TaskType     string         `db:"task_type"`
	TaskData     []byte         `db:"task_data"`
	Status       string         `db:"status"`
	ExecutedAt   sql.NullTime   `db:"executed_at"`
	ErrorMessage sql.NullString `db:"error_message"`
	Description  sql.NullString `db:"description"`
	MinX         sql.NullInt64  `db:"min_x"`
	MinY         sql.NullInt64  `db:"min_y"`
	MinZ         sql.NullInt64  `db:"min_z"`
	MaxX         sql.NullInt64  `db:"max_x"`
	MaxY         sql.NullInt64  `db:"max_y"`
	MaxZ         sql.NullInt64  `db:"max_z"`
}

func (r taskRow) toDomain() (*domain.Task, error) {
	data, err := unmarshalTaskData(r.TaskData)
	if err != nil {
		return nil, err
	}
	t := &domain.Task{
		ID:        r.ID,
		BuildID:   r.BuildID,
		Order:     r.TaskOrder,
		Type:      domain.TaskType(r.TaskType),
		Data:      data,
		Status:    domain.TaskStatus(r.Status),
		ExecutedAt: sqlutil.FromNullTime(r.ExecutedAt),
	}
	if r.ErrorMessage.Valid {
		t.ErrorMessage = r.ErrorMessage.String
	}
	if r.Description.Valid {
		t.Description = r.Description.String
	}
	if r.MinX.Valid && r.MinY.Valid && r.MinZ.Valid && r.MaxX.Valid && r.MaxY.Valid && r.MaxZ.Valid {
		box := geometry.New(int(r.MinX.Int64), int(r.MinY.Int64), int(r.MinZ.Int64),
			int(r.MaxX.Int64), int(r.MaxY.Int64), int(r.MaxZ.Int64))
		t.Bounds = &box
	}
	return t, nil
}

func boundsColumns(box *geometry.BoundingBox) (minX, minY, minZ, maxX, maxY, maxZ sql.NullInt64) {
	if box == nil {
		return
	}
	v := func(n int) sql.NullInt64 { return sql.NullInt64{Int64: int64(n), Valid: true} }
	return v(box.MinX), v(box.MinY), v(box.MinZ), v(box.MaxX), v(box.MaxY), v(box.MaxZ)
}

// AddTaskToEnd assigns the next task_order in buildID and inserts task.
// A unique-constraint violation under concurrent inserts surfaces as a
// conflict problem; the build service returns it without retrying.
func (r *Repository) AddTaskToEnd(ctx context.Context, buildID string, task *domain.Task) (*domain.Task, error) {
	const nextOrderQuery = `SELECT COALESCE(MAX(task_order) + 1, 0) FROM tasks WHERE build_id = $1`
	var order int
	if err := r.db.GetContext(ctx, &order, nextOrderQuery, buildID); err != nil {
		return nil, wrapStorageErr("add_task_to_end", err)
	}
	task.BuildID = buildID
	task.Order = order

	data, err := marshalTaskData(task.Data)
	if err != nil {
		return nil, wrapStorageErr("add_task_to_end", err)
	}
	minX, minY, minZ, maxX, maxY, maxZ := boundsColumns(task.Bounds)

	const insert = `
		INSERT INTO tasks (id, build_id, task_order, task_type, task_data, status,
			description, min_x, min_y, min_z, max_x, max_y, max_z)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err = r.db.ExecContext(ctx, insert,
		task.ID, task.BuildID, task.Order, string(task.Type), data, string(task.Status),
		sqlutil.ToNullStringValue(task.Description), minX, minY, minZ, maxX, maxY, maxZ)
	if err != nil {
		return nil, wrapStorageErr("add_task_to_end", err)
	}
	return task, nil
}

// GetTasksOrdered returns every task in buildID ordered by task_order.
func (r *Repository) GetTasksOrdered(ctx context.Context, buildID string) ([]*domain.Task, error) {
	const q = `
		SELECT id, build_id, task_order, task_type, task_data, status, executed_at,
			error_message, description, min_x, min_y, min_z, max_x, max_y, max_z
		FROM tasks WHERE build_id = $1 ORDER BY task_order ASC`
	var rows []taskRow
	if err := r.db.SelectContext(ctx, &rows, q, buildID); err != nil {
		return nil, wrapStorageErr("get_tasks_ordered", err)
	}
	out := make([]*domain.Task, len(rows))
	for i, row := range rows {
		t, err := row.toDomain()
		if err != nil {
			return nil, wrapStorageErr("get_tasks_ordered", err)
		}
		out[i] = t
	}
	return out, nil
}

// GetTask fetches a single task by id.
func (r *Repository) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	const q = `
		SELECT id, build_id, task_order, task_type, task_data, status, executed_at,
			error_message, description, min_x, min_y, min_z, max_x, max_y, max_z
		FROM tasks WHERE id = $1`
	var row taskRow
	if err := r.db.GetContext(ctx, &row, q, taskID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, wrapStorageErr("get_task", err)
	}
	return row.toDomain()
}

// ReplaceTaskQueue deletes every task in buildID and reinserts tasks in
// a single transaction, so readers never observe a gap in task_order.
func (r *Repository) ReplaceTaskQueue(ctx context.Context, buildID string, tasks []*domain.Task) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrapStorageErr("replace_task_queue", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE build_id = $1`, buildID); err != nil {
		return wrapStorageErr("replace_task_queue", err)
	}

	const insert = `
		INSERT INTO tasks (id, build_id, task_order, task_type, task_data, status,
			executed_at, error_message, description, min_x, min_y, min_z, max_x, max_y, max_z)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	for i, t := range tasks {
		data, err := marshalTaskData(t.Data)
		if err != nil {
			return wrapStorageErr("replace_task_queue", err)
		}
		minX, minY, minZ, maxX, maxY, maxZ := boundsColumns(t.Bounds)
		if _, err := tx.ExecContext(ctx, insert,
			t.ID, buildID, i, string(t.Type), data, string(t.Status),
			sqlutil.ToNullTime(t.ExecutedAt), sqlutil.ToNullStringValue(t.ErrorMessage),
			sqlutil.ToNullStringValue(t.Description), minX, minY, minZ, maxX, maxY, maxZ,
		); err != nil {
			return wrapStorageErr("replace_task_queue", err)
		}
		t.Order = i
	}
	if err := tx.Commit(); err != nil {
		return wrapStorageErr("replace_task_queue", err)
	}
	return nil
}

// UpdateTaskStatus transitions a task's status and records its
// executed_at/error_message.
func (r *Repository) UpdateTaskStatus(ctx context.Context, taskID string, status domain.TaskStatus, executedAt *time.Time, errorMessage string) error {
	const q = `UPDATE tasks SET status = $1, executed_at = $2, error_message = $3 WHERE id = $4`
	res, err := r.db.ExecContext(ctx, q, string(status), sqlutil.ToNullTime(executedAt), sqlutil.ToNullStringValue(errorMessage), taskID)
	if err != nil {
		return wrapStorageErr("update_task_status", err)
	}
	return checkAffected(res)
}

// UpdateTaskData persists a task's merged task_data, description, and
// recomputed bounds (used by the build service's patch operation).
func (r *Repository) UpdateTaskData(ctx context.Context, task *domain.Task) error {
	data, err := marshalTaskData(task.Data)
	if err != nil {
		return wrapStorageErr("update_task_data", err)
	}
	minX, minY, minZ, maxX, maxY, maxZ := boundsColumns(task.Bounds)
	const q = `
		UPDATE tasks SET task_data = $1, description = $2,
			min_x = $3, min_y = $4, min_z = $5, max_x = $6, max_y = $7, max_z = $8
		WHERE id = $9`
	res, err := r.db.ExecContext(ctx, q, data, sqlutil.ToNullStringValue(task.Description),
		minX, minY, minZ, maxX, maxY, maxZ, task.ID)
	if err != nil {
		return wrapStorageErr("update_task_data", err)
	}
	return checkAffected(res)
}

// DeleteTask removes a single task. The caller is responsible for
// renumbering the remaining queue (typically via ReplaceTaskQueue).
func (r *Repository) DeleteTask(ctx context.Context, taskID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, taskID)
	if err != nil {
		return wrapStorageErr("delete_task", err)
	}
	return checkAffected(res)
}

// ListTasksIntersecting returns every task in world whose bounds
// intersect box, joining on build for the world filter.
func (r *Repository) ListTasksIntersecting(ctx context.Context, world string, box geometry.BoundingBox) ([]*domain.Task, error) {
	const q = `
		SELECT t.id, t.build_id, t.task_order, t.task_type, t.task_data, t.status, t.executed_at,
			t.error_message, t.description, t.min_x, t.min_y, t.min_z, t.max_x, t.max_y, t.max_z
		FROM tasks t
		JOIN builds b ON b.id = t.build_id
		WHERE b.world = $1
		  AND t.min_x <= $2 AND t.max_x >= $3
		  AND t.min_y <= $4 AND t.max_y >= $5
		  AND t.min_z <= $6 AND t.max_z >= $7
		ORDER BY t.build_id, t.task_order ASC`
	var rows []taskRow
	err := r.db.SelectContext(ctx, &rows, q, world,
		box.MaxX, box.MinX, box.MaxY, box.MinY, box.MaxZ, box.MinZ)
	if err != nil {
		return nil, wrapStorageErr("list_tasks_intersecting", err)
	}
	out := make([]*domain.Task, len(rows))
	for i, row := range rows {
		t, err := row.toDomain()
		if err != nil {
			return nil, wrapStorageErr("list_tasks_intersecting", err)
		}
		out[i] = t
	}
	return out, nil
}
