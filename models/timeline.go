package models

import "time"

// TaskStatus mirrors the states the production board exposes.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in-progress"
	TaskDone       TaskStatus = "done"
)

// Task is a dated work item inside a phase. Tasks have no existence
// outside their containing phase.
type Task struct {
	ID          string     `json:"id" validate:"required"`
	Name        string     `json:"name" validate:"required"`
	Description string     `json:"description,omitempty"`
	DueDate     time.Time  `json:"dueDate" validate:"required"`
	Status      TaskStatus `json:"status,omitempty"`
}

// Phase is a scheduling block of the project timeline. EndDate >=
// StartDate is enforced by the callers that build phases, not here.
type Phase struct {
	ID          string    `json:"id" validate:"required"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description,omitempty"`
	StartDate   time.Time `json:"startDate" validate:"required"`
	EndDate     time.Time `json:"endDate" validate:"required"`
	Completed   bool      `json:"completed"`
	Type        string    `json:"type,omitempty"`
	Tasks       []Task    `json:"tasks,omitempty"`
}

// Duration returns the phase length. Zero for instantaneous phases
// such as Delivery.
func (p *Phase) Duration() time.Duration {
	return p.EndDate.Sub(p.StartDate)
}
