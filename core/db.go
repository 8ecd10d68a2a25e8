package core

import (
	"context"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// Transactor runs fn inside a single database transaction carried by the context given to fn.
// Nested calls join the outer transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// FilterOrdering drops orderings on fields that are not in allowed.
func FilterOrdering(ordering []DBOrdering, allowed ...string) []DBOrdering {
	if len(ordering) == 0 {
		return nil
	}
	valid := make([]DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		for _, fld := range allowed {
			if ord.Field == fld {
				valid = append(valid, ord)
				break
			}
		}
	}
	return valid
}

type Page struct {
	Limit  int
	Offset int
}

// Clean bounds the page size to (0, MaxPageSize].
func (p Page) Clean() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	} else if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
