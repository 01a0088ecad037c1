package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Projects stores project records
type Projects interface {
	repository.Repository[*Project]

	FindProject(ctx context.Context, id uuid.UUID) (*Project, error)
	FindProjectTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Project, error)
	InsertProjectTx(ctx context.Context, tx bun.IDB, project *Project) (*Project, error)
	DeleteProjectTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type projects struct {
	repository.Repository[*Project]
	db *bun.DB
}

var _ Projects = (*projects)(nil)

func NewProjectsRepository(db *bun.DB) Projects {
	repo := repository.NewRepository[*Project](db, repository.ModelHandlers[*Project]{
		NewRecord: func() *Project { return &Project{} },
		GetID: func(p *Project) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Project, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
	})
	return &projects{Repository: repo, db: db}
}

func (p *projects) FindProject(ctx context.Context, id uuid.UUID) (*Project, error) {
	return p.FindProjectTx(ctx, p.db, id)
}

func (p *projects) FindProjectTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Project, error) {
	record, err := p.Repository.GetByIDTx(ctx, tx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, wrapSource(ErrNotFound, err, map[string]any{"project_id": id.String()})
		}
		return nil, err
	}
	return record, nil
}

func (p *projects) InsertProjectTx(ctx context.Context, tx bun.IDB, project *Project) (*Project, error) {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	if project.Status == "" {
		project.Status = ProjectStatusActive
	}
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now().UTC()
	}
	return p.Repository.CreateTx(ctx, tx, project)
}

// DeleteProjectTx removes the project along with its tasks and memberships
func (p *projects) DeleteProjectTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	if _, err := tx.NewDelete().Model((*Task)(nil)).Where("project_id = ?", id).Exec(ctx); err != nil {
		return err
	}
	if _, err := tx.NewDelete().Model((*Membership)(nil)).Where("project_id = ?", id).Exec(ctx); err != nil {
		return err
	}
	_, err := tx.NewDelete().Model((*Project)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}
