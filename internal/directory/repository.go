// File: internal/directory/repository.go
package directory

import (
	"context"
	"fmt"
	"time"
)

// Repository defines the directory store operations.
type Repository interface {
	// List returns every record in store-native order.
	List(ctx context.Context) ([]User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByUID(ctx context.Context, uid string) (*User, error)
	Insert(ctx context.Context, u NewUser) (*User, error)
	Update(ctx context.Context, id string, updates Updates) error
	Delete(ctx context.Context, id string) error
}

// StoreError is a generic read or write failure of the directory store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("directory store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// Clock returns the time the store stamps on writes.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}
