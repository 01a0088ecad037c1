package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Tasks stores task records
type Tasks interface {
	repository.Repository[*Task]

	FindTask(ctx context.Context, id uuid.UUID) (*Task, error)
	InsertTaskTx(ctx context.Context, tx bun.IDB, task *Task) (*Task, error)
	DeleteTask(ctx context.Context, id uuid.UUID) error
}

type tasks struct {
	repository.Repository[*Task]
	db *bun.DB
}

var _ Tasks = (*tasks)(nil)

func NewTasksRepository(db *bun.DB) Tasks {
	repo := repository.NewRepository[*Task](db, repository.ModelHandlers[*Task]{
		NewRecord: func() *Task { return &Task{} },
		GetID: func(t *Task) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *Task, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
	})
	return &tasks{Repository: repo, db: db}
}

func (t *tasks) FindTask(ctx context.Context, id uuid.UUID) (*Task, error) {
	record, err := t.Repository.GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, wrapSource(ErrNotFound, err, map[string]any{"task_id": id.String()})
		}
		return nil, err
	}
	return record, nil
}

func (t *tasks) InsertTaskTx(ctx context.Context, tx bun.IDB, task *Task) (*Task, error) {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Status == "" {
		task.Status = TaskStatusTodo
	}
	if task.Priority == "" {
		task.Priority = TaskPriorityMedium
	}
	if task.Labels == nil {
		task.Labels = []string{}
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	return t.Repository.CreateTx(ctx, tx, task)
}

func (t *tasks) DeleteTask(ctx context.Context, id uuid.UUID) error {
	_, err := t.db.NewDelete().Model((*Task)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}
