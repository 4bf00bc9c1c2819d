// Package storage persists named story scripts for the editor library.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// ErrNotFound is returned when a script does not exist.
var ErrNotFound = errors.New("script not found")

// Script is one saved story source.
type Script struct {
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ScriptStore is implemented by the memory, postgres and sqlite stores.
type ScriptStore interface {
	Get(ctx context.Context, name string) (Script, error)
	Put(ctx context.Context, s Script) error
	// List returns scripts ordered by name, without their source.
	List(ctx context.Context) ([]Script, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)

// ValidateName checks that name is usable as a script key and URL segment.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("invalid script name %q", name)
	}
	return nil
}
