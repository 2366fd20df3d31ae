package memory

import (
	"context"
	"maps"
	"slices"

	"fleets-server/internal/shared/errors"
)

// table is a generic id keyed row set. Rows are stored by value so callers
// never alias stored state.
type table[T any] struct {
	name   string
	rows   map[int64]T
	nextID int64
	id     func(*T) *int64
}

func newTable[T any](name string, id func(*T) *int64) *table[T] {
	return &table[T]{name: name, rows: make(map[int64]T), id: id}
}

func (t *table[T]) clone() *table[T] {
	return &table[T]{name: t.name, rows: maps.Clone(t.rows), nextID: t.nextID, id: t.id}
}

func (t *table[T]) find(id int64) (*T, error) {
	row, ok := t.rows[id]
	if !ok {
		return nil, errors.NotFoundf("%s %d not found", t.name, id)
	}
	return &row, nil
}

func (t *table[T]) save(entity *T) {
	id := t.id(entity)
	if *id == 0 {
		t.nextID++
		*id = t.nextID
	} else if *id > t.nextID {
		t.nextID = *id
	}
	t.rows[*id] = *entity
}

func (t *table[T]) delete(id int64) {
	delete(t.rows, id)
}

// filter returns matching rows ordered by id.
func (t *table[T]) filter(match func(*T) bool) []T {
	ids := slices.Sorted(maps.Keys(t.rows))
	var out []T
	for _, id := range ids {
		row := t.rows[id]
		if match(&row) {
			out = append(out, row)
		}
	}
	return out
}

// repo adapts a table to store.Repository. Locked reads need no extra work:
// the store holds a single mutex for the whole transaction.
type repo[T any] struct {
	t *table[T]
}

func (r repo[T]) FindByID(_ context.Context, id int64) (*T, error) {
	return r.t.find(id)
}

func (r repo[T]) FindLockedByID(_ context.Context, id int64) (*T, error) {
	return r.t.find(id)
}

func (r repo[T]) Save(_ context.Context, entity *T) error {
	r.t.save(entity)
	return nil
}

func (r repo[T]) Delete(_ context.Context, id int64) error {
	r.t.delete(id)
	return nil
}
