package postgres

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/voxelforge/buildcore/pkg/apierrors"
	"github.com/voxelforge/buildcore/pkg/domain"
	"github.com/voxelforge/buildcore/pkg/geometry"
	"github.com/voxelforge/buildcore/pkg/repository"
)

func TestPostgresRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Postgres Repository Suite")
}

var _ = Describe("Repository", func() {
	var (
		ctx    context.Context
		repo   *Repository
		mockDB *sql.DB
		mock   sqlmock.Sqlmock
	)

	BeforeEach(func() {
		var err error
		mockDB, mock, err = sqlmock.New()
		Expect(err).ToNot(HaveOccurred())

		db := sqlx.NewDb(mockDB, "sqlmock")
		repo = New(db, zap.NewNop())
		ctx = context.Background()
	})

	AfterEach(func() {
		mockDB.Close()
	})

	Describe("CreateBuild", func() {
		It("inserts the build and returns it unchanged", func() {
			build := domain.NewBuild("castle", "", "", time.Now())

			mock.ExpectExec(`INSERT INTO builds`).
				WithArgs(build.ID, build.Name, sqlmock.AnyArg(), build.World, string(build.Status), build.CreatedAt).
				WillReturnResult(sqlmock.NewResult(1, 1))

			got, err := repo.CreateBuild(ctx, build)
			Expect(err).ToNot(HaveOccurred())
			Expect(got).To(Equal(build))
			Expect(mock.ExpectationsWereMet()).To(Succeed())
		})
	})

	Describe("GetBuild", func() {
		It("returns repository.ErrNotFound when no row matches", func() {
			mock.ExpectQuery(`SELECT .* FROM builds`).
				WithArgs("missing").
				WillReturnError(sql.ErrNoRows)

			_, err := repo.GetBuild(ctx, "missing")
			Expect(errors.Is(err, repository.ErrNotFound)).To(BeTrue())
		})

		It("maps a row back into a domain.Build", func() {
			now := time.Now()
			rows := sqlmock.NewRows([]string{"id", "name", "description", "world", "status", "created_at", "completed_at"}).
				AddRow("b1", "castle", "a keep", "minecraft:overworld", "CREATED", now, nil)
			mock.ExpectQuery(`SELECT .* FROM builds`).WithArgs("b1").WillReturnRows(rows)

			got, err := repo.GetBuild(ctx, "b1")
			Expect(err).ToNot(HaveOccurred())
			Expect(got.ID).To(Equal("b1"))
			Expect(got.Status).To(Equal(domain.BuildCreated))
			Expect(got.CompletedAt).To(BeNil())
		})
	})

	Describe("AddTaskToEnd", func() {
		It("assigns the next order and inserts the row", func() {
			mock.ExpectQuery(`SELECT COALESCE`).
				WithArgs("b1").
				WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(2))
			mock.ExpectExec(`INSERT INTO tasks`).
				WillReturnResult(sqlmock.NewResult(1, 1))

			box := geometry.Point(1, 2, 3)
			task := domain.NewTask("b1", 0, domain.TaskPrefabTorch, map[string]interface{}{"x": 1}, "")
			task.Bounds = &box

			got, err := repo.AddTaskToEnd(ctx, "b1", task)
			Expect(err).ToNot(HaveOccurred())
			Expect(got.Order).To(Equal(2))
			Expect(mock.ExpectationsWereMet()).To(Succeed())
		})

		It("maps a unique-constraint violation to a conflict problem", func() {
			mock.ExpectQuery(`SELECT COALESCE`).
				WithArgs("b1").
				WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))
			mock.ExpectExec(`INSERT INTO tasks`).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "tasks_build_id_task_order_key"})

			task := domain.NewTask("b1", 0, domain.TaskPrefabTorch, map[string]interface{}{"x": 1}, "")
			_, err := repo.AddTaskToEnd(ctx, "b1", task)
			Expect(err).To(HaveOccurred())
			var problem *apierrors.RFC7807Problem
			Expect(errors.As(err, &problem)).To(BeTrue())
			Expect(problem.Status).To(Equal(http.StatusConflict))
		})
	})

	Describe("ReplaceTaskQueue", func() {
		It("deletes and reinserts within a single transaction", func() {
			mock.ExpectBegin()
			mock.ExpectExec(`DELETE FROM tasks`).WithArgs("b1").WillReturnResult(sqlmock.NewResult(0, 3))
			mock.ExpectExec(`INSERT INTO tasks`).WillReturnResult(sqlmock.NewResult(1, 1))
			mock.ExpectExec(`INSERT INTO tasks`).WillReturnResult(sqlmock.NewResult(1, 1))
			mock.ExpectCommit()

			t1 := domain.NewTask("b1", 5, domain.TaskPrefabTorch, map[string]interface{}{"x": 1}, "")
			t2 := domain.NewTask("b1", 9, domain.TaskPrefabTorch, map[string]interface{}{"x": 2}, "")

			err := repo.ReplaceTaskQueue(ctx, "b1", []*domain.Task{t1, t2})
			Expect(err).ToNot(HaveOccurred())
			Expect(t1.Order).To(Equal(0))
			Expect(t2.Order).To(Equal(1))
			Expect(mock.ExpectationsWereMet()).To(Succeed())
		})

		It("rolls back when the delete fails", func() {
			mock.ExpectBegin()
			mock.ExpectExec(`DELETE FROM tasks`).WillReturnError(errors.New("connection reset"))
			mock.ExpectRollback()

			err := repo.ReplaceTaskQueue(ctx, "b1", nil)
			Expect(err).To(HaveOccurred())
			Expect(mock.ExpectationsWereMet()).To(Succeed())
		})
	})

	Describe("DeleteTask", func() {
		It("returns repository.ErrNotFound when no rows were affected", func() {
			mock.ExpectExec(`DELETE FROM tasks`).WithArgs("missing").WillReturnResult(sqlmock.NewResult(0, 0))

			err := repo.DeleteTask(ctx, "missing")
			Expect(errors.Is(err, repository.ErrNotFound)).To(BeTrue())
		})
	})
})
