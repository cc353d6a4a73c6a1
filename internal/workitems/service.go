package workitems

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/taskdesk/taskdesk/internal/shared"
)

// RepositoryPort defines data access methods for work items.
type RepositoryPort interface {
	Insert(ctx context.Context, item Item) (Item, error)
	Get(ctx context.Context, id string) (Item, error)
	List(ctx context.Context, limit int) ([]Item, error)
	Update(ctx context.Context, item Item) (Item, error)
	Delete(ctx context.Context, id string) error
}

const listLimit = 200

// Service handles work item logic for one kind.
type Service struct {
	kind  Kind
	repo  RepositoryPort
	newID func() string
}

// NewService builds Service instance.
func NewService(kind Kind, repo RepositoryPort) *Service {
	return &Service{kind: kind, repo: repo, newID: uuid.NewString}
}

// Kind returns the collection the service manages.
func (s *Service) Kind() Kind {
	return s.kind
}

func clean(in Input) (Input, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Status = strings.TrimSpace(in.Status)
	if in.Title == "" {
		return Input{}, fmt.Errorf("%w: title is required", shared.ErrValidation)
	}
	if in.Status == "" {
		in.Status = StatusOpen
	}
	switch in.Status {
	case StatusOpen, StatusInProgress, StatusDone, StatusCancelled:
	default:
		return Input{}, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, in.Status)
	}
	return in, nil
}

// Create stores a new item authored by actorID.
func (s *Service) Create(ctx context.Context, actorID string, in Input) (Item, error) {
	in, err := clean(in)
	if err != nil {
		return Item{}, err
	}
	return s.repo.Insert(ctx, Item{
		ID:          s.newID(),
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		AssigneeID:  in.AssigneeID,
		CustomerID:  in.CustomerID,
		CreatedBy:   actorID,
	})
}

// Get returns one item.
func (s *Service) Get(ctx context.Context, id string) (Item, error) {
	return s.repo.Get(ctx, id)
}

// List returns the most recent items.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	return s.repo.List(ctx, listLimit)
}

// Update replaces the writable fields of an item.
func (s *Service) Update(ctx context.Context, id string, in Input) (Item, error) {
	in, err := clean(in)
	if err != nil {
		return Item{}, err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	current.Title = in.Title
	current.Description = in.Description
	current.Status = in.Status
	current.AssigneeID = in.AssigneeID
	current.CustomerID = in.CustomerID
	return s.repo.Update(ctx, current)
}

// Delete removes an item.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
