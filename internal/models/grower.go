package models

import (
	"errors"
	"time"
)

// TaskDateLayout is the calendar key of a grower task
const TaskDateLayout = "2006-01-02"

// ErrTaskNotFound is returned when a task id is not on the given date
var ErrTaskNotFound = errors.New("task not found")

// GrowerTask is one calendar entry planned for a grower
type GrowerTask struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Grower is a registered orchard project and its notification calendar
type Grower struct {
	ID           string                  `gorm:"primaryKey;size:36" json:"id"`
	ProjectID    string                  `gorm:"size:64;not null;uniqueIndex" json:"projectId"`
	NameOfGrower string                  `gorm:"size:255" json:"nameOfGrower"`
	PhoneNumber  string                  `gorm:"size:20" json:"phoneNumber"`
	Address      string                  `gorm:"type:text" json:"address,omitempty"`
	Tasks        map[string][]GrowerTask `gorm:"serializer:json;type:jsonb" json:"tasks"`
	CreatedAt    time.Time               `gorm:"index" json:"createdAt"`
	UpdatedAt    time.Time               `json:"updatedAt"`
}

// GrowerPatch carries the profile fields an admin may change
type GrowerPatch struct {
	NameOfGrower *string `json:"nameOfGrower"`
	PhoneNumber  *string `json:"phoneNumber"`
	Address      *string `json:"address"`
}

// AddTask files task under its date
func (g *Grower) AddTask(task GrowerTask) {
	if g.Tasks == nil {
		g.Tasks = map[string][]GrowerTask{}
	}
	g.Tasks[task.Date] = append(g.Tasks[task.Date], task)
}

// RemoveTask drops task id from date; a date left empty is removed
func (g *Grower) RemoveTask(date, id string) error {
	tasks := g.Tasks[date]
	for i, t := range tasks {
		if t.ID != id {
			continue
		}
		rest := append(append([]GrowerTask{}, tasks[:i]...), tasks[i+1:]...)
		if len(rest) == 0 {
			delete(g.Tasks, date)
		} else {
			g.Tasks[date] = rest
		}
		return nil
	}
	return ErrTaskNotFound
}

// Clone returns a copy that shares no task slices with g
func (g Grower) Clone() Grower {
	if g.Tasks != nil {
		tasks := make(map[string][]GrowerTask, len(g.Tasks))
		for date, list := range g.Tasks {
			tasks[date] = append([]GrowerTask(nil), list...)
		}
		g.Tasks = tasks
	}
	return g
}
