// Package models defines the core data structures for users, checklists
// and checklist items exchanged with the remote API.
package models

import (
	"encoding/json"
	"math"
	"time"
)

// User represents the signed-in account as known to the front end.
type User struct {
	// ID is the identifier of the user. The API does not echo one back,
	// so it is synthesized from the username.
	ID string `json:"id"`
	// Username is the login name chosen by the user.
	Username string `json:"username"`
	// Email is the address given at registration (or the username after a plain login).
	Email string `json:"email"`
}

// Credentials is the payload of POST /login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the payload of POST /register.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Checklist is a named collection of items owned by the authenticated user.
type Checklist struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Items     []ChecklistItem `json:"items,omitempty"`
	Completed bool            `json:"checklistCompletionStatus,omitempty"`
	CreatedAt *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

// ChecklistItem is a single task entry of a checklist.
type ChecklistItem struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Completed   bool       `json:"itemCompletionStatus"`
	ChecklistID int64      `json:"checklistId,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// UnmarshalJSON accepts both "itemCompletionStatus" and "completed" for the
// completion flag; the API has shipped both spellings.
func (i *ChecklistItem) UnmarshalJSON(data []byte) error {
	type plain ChecklistItem
	var aux struct {
		plain
		ItemName  *string `json:"itemName"`
		Completed *bool   `json:"completed"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*i = ChecklistItem(aux.plain)
	if i.Name == "" && aux.ItemName != nil {
		i.Name = *aux.ItemName
	}
	if aux.Completed != nil && !i.Completed {
		i.Completed = *aux.Completed
	}
	return nil
}

// Progress is the completion summary of one checklist.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// ProgressOf counts the completed items.
func ProgressOf(items []ChecklistItem) Progress {
	p := Progress{Total: len(items)}
	for _, it := range items {
		if it.Completed {
			p.Completed++
		}
	}
	return p
}

// Percent returns the rounded completion percentage, 0 for an empty checklist.
func (p Progress) Percent() int {
	if p.Total == 0 {
		return 0
	}
	return int(math.Round(float64(p.Completed) / float64(p.Total) * 100))
}
