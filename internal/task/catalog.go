// Package task provides the named, weighted set of candidate actions a
// virtual user picks from.
package task

import (
	"context"
	"fmt"
	"math/rand"
)

// Action performs one complete exchange against the target system,
// including recording its outcome. The returned error is informational
// (for logging); the action itself is responsible for classifying and
// reporting the result.
type Action func(ctx context.Context) error

// Task is a named, weighted candidate action.
type Task struct {
	Name   string
	Weight int
	Action Action
}

// Catalog holds the registered tasks for one virtual user role.
//
// Registration happens at construction time; after that the catalog is
// read-only and safe to share. Pick uses the caller-supplied random
// source, so a catalog shared across users needs no locking as long as
// each user picks with its own source.
type Catalog struct {
	tasks []Task
	total int
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{}
}

// Register adds a task. Weight is a relative selection frequency, not a
// probability; it must be at least 1.
func (c *Catalog) Register(name string, weight int, action Action) error {
	if name == "" {
		return fmt.Errorf("task: name is required")
	}
	if weight < 1 {
		return fmt.Errorf("task %q: weight must be >= 1, got %d", name, weight)
	}
	if action == nil {
		return fmt.Errorf("task %q: action is required", name)
	}
	for _, t := range c.tasks {
		if t.Name == name {
			return fmt.Errorf("task %q: already registered", name)
		}
	}

	c.tasks = append(c.tasks, Task{Name: name, Weight: weight, Action: action})
	c.total += weight
	return nil
}

// Pick performs weighted random selection over the registered tasks.
// Each task is chosen with probability weight/sum(weights), with no
// memory of prior picks.
func (c *Catalog) Pick(rng *rand.Rand) (Task, error) {
	if len(c.tasks) == 0 {
		return Task{}, fmt.Errorf("task: catalog is empty")
	}

	n := rng.Intn(c.total)
	for _, t := range c.tasks {
		n -= t.Weight
		if n < 0 {
			return t, nil
		}
	}
	// Unreachable: n < total and weights sum to total.
	return c.tasks[len(c.tasks)-1], nil
}

// Len returns the number of registered tasks.
func (c *Catalog) Len() int {
	return len(c.tasks)
}

// TotalWeight returns the sum of all registered weights.
func (c *Catalog) TotalWeight() int {
	return c.total
}
