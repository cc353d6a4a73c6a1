// Package workitems stores tasks and work orders as JSONB documents. Both
// kinds share one shape and differ only in table and RBAC resource name.
package workitems

import (
	"fmt"
	"time"

	"github.com/taskdesk/taskdesk/internal/shared"
)

// Kind names a collection of work items.
type Kind struct {
	Resource string
	table    string
}

var (
	// Tasks are internal units of work.
	Tasks = Kind{Resource: "tasks", table: "tasks"}
	// WorkOrders are customer service requests.
	WorkOrders = Kind{Resource: "workorders", table: "workorders"}
)

// ErrItemNotFound is returned when a work item lookup misses.
var ErrItemNotFound = fmt.Errorf("%w: item not found", shared.ErrNotFound)

// Statuses accepted for a work item.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusCancelled  = "cancelled"
)

// Item is a task or a work order.
type Item struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	AssigneeID  string    `json:"assigneeId,omitempty"`
	CustomerID  string    `json:"customerId,omitempty"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Input carries writable fields.
type Input struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=4000"`
	Status      string `json:"status" validate:"omitempty,oneof=open in_progress done cancelled"`
	AssigneeID  string `json:"assigneeId"`
	CustomerID  string `json:"customerId"`
}
