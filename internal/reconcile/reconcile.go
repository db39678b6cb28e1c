// Package reconcile computes and applies the minimal delete/insert/update
// operations that turn a persisted child collection into a desired one.
package reconcile

import (
	"context"

	"github.com/pkg/errors"
)

// Row is a child row that can take part in a reconciliation.
// Key returns the row identity; a blank or unknown key marks a row that is
// not persisted yet. Valid reports whether the row carries its required value.
type Row interface {
	Key() string
	Valid() bool
}

// Plan holds the operation sets produced by Diff.
type Plan[T Row] struct {
	Delete []T
	Insert []T
	Update []T
}

// Empty reports whether the plan has nothing to do.
func (p Plan[T]) Empty() bool {
	return len(p.Delete) == 0 && len(p.Insert) == 0 && len(p.Update) == 0
}

// Counts returns the size of each operation set.
func (p Plan[T]) Counts() (deleted, inserted, updated int) {
	return len(p.Delete), len(p.Insert), len(p.Update)
}

// Filter drops rows failing their validity predicate, keeping order.
func Filter[T Row](rows []T) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if r.Valid() {
			out = append(out, r)
		}
	}
	return out
}

// Diff compares the persisted rows with the desired rows.
//
// Desired rows are filtered first. Existing rows whose key is absent from the
// filtered desired set are deleted, desired rows whose key is not persisted are
// inserted and the rest are full updates. When a non-blank key appears more than
// once in desired, the last occurrence's values win at the first occurrence's
// position.
func Diff[T Row](existing, desired []T) Plan[T] {
	desired = dedupe(Filter(desired))

	existingKeys := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		existingKeys[e.Key()] = struct{}{}
	}
	desiredKeys := make(map[string]struct{}, len(desired))
	for _, d := range desired {
		if k := d.Key(); k != "" {
			desiredKeys[k] = struct{}{}
		}
	}

	var plan Plan[T]
	for _, e := range existing {
		if _, ok := desiredKeys[e.Key()]; !ok {
			plan.Delete = append(plan.Delete, e)
		}
	}
	for _, d := range desired {
		if _, ok := existingKeys[d.Key()]; ok && d.Key() != "" {
			plan.Update = append(plan.Update, d)
		} else {
			plan.Insert = append(plan.Insert, d)
		}
	}
	return plan
}

func dedupe[T Row](rows []T) []T {
	pos := make(map[string]int, len(rows))
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		k := r.Key()
		if k == "" {
			out = append(out, r)
			continue
		}
		if i, ok := pos[k]; ok {
			out[i] = r
			continue
		}
		pos[k] = len(out)
		out = append(out, r)
	}
	return out
}

// Executor performs the storage side of a plan.
type Executor[T Row] interface {
	Delete(ctx context.Context, rows []T) error
	Insert(ctx context.Context, rows []T) error
	Update(ctx context.Context, row T) error
}

// Apply runs the plan as delete, then insert, then one update per row.
// It stops at the first failing step.
func Apply[T Row](ctx context.Context, plan Plan[T], ex Executor[T]) error {
	if len(plan.Delete) > 0 {
		if err := ex.Delete(ctx, plan.Delete); err != nil {
			return errors.Wrapf(err, "reconcile: delete %d rows", len(plan.Delete))
		}
	}
	if len(plan.Insert) > 0 {
		if err := ex.Insert(ctx, plan.Insert); err != nil {
			return errors.Wrapf(err, "reconcile: insert %d rows", len(plan.Insert))
		}
	}
	for _, row := range plan.Update {
		if err := ex.Update(ctx, row); err != nil {
			return errors.Wrapf(err, "reconcile: update row %s", row.Key())
		}
	}
	return nil
}

// Reconcile diffs existing against desired and applies the result.
func Reconcile[T Row](ctx context.Context, existing, desired []T, ex Executor[T]) (Plan[T], error) {
	plan := Diff(existing, desired)
	return plan, Apply(ctx, plan, ex)
}
