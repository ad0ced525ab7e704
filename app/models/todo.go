package models

import (
	"fmt"
	"time"
)

// Todo represents a task node. A nil ParentID marks a root task.
type Todo struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	ParentID  *string   `json:"parentId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsRoot reports whether the todo has no parent.
func (t Todo) IsRoot() bool {
	return t.ParentID == nil || *t.ParentID == ""
}

// HasParent reports whether the todo is a direct child of id.
func (t Todo) HasParent(id string) bool {
	return id != "" && t.ParentID != nil && *t.ParentID == id
}

// Stats is the "completed of total" summary of a todo collection.
type Stats struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// String formats the stats as "K of N tasks completed".
func (s Stats) String() string {
	return fmt.Sprintf("%d of %d tasks completed", s.Completed, s.Total)
}
