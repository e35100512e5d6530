package workspace

import (
	"github.com/saucierapp/saucier-server/internal/domain"
	"github.com/saucierapp/saucier-server/internal/errors"
)

// AppendCookbook adds a cookbook at the end of the shelf, assigning it the
// next free position so an immediate publish keeps the visible order stable.
func (w *Workspace) AppendCookbook(entry domain.Entry) error {
	return w.Mutate(domain.ResourceCookbooks, func(entries []domain.Entry) ([]domain.Entry, error) {
		entry = entry.Clone()
		entry.Position = domain.NextPosition(entries)
		return append(entries, entry), nil
	})
}

// MoveCookbook moves the cookbook at display rank from to display rank to,
// then renumbers every position to the contiguous range 1..N. Ranks index the
// ordered view, not the raw slice. Reordering is refused while a filter query
// narrows the view, since ranks would not cover the full shelf.
func (w *Workspace) MoveCookbook(from, to int, query string) error {
	if query != "" {
		return errors.Validation("cannot reorder a filtered cookbook list; clear the filter first")
	}
	return w.Mutate(domain.ResourceCookbooks, func(entries []domain.Entry) ([]domain.Entry, error) {
		order := domain.OrderedIndexes(entries)
		if from < 0 || from >= len(order) || to < 0 || to >= len(order) {
			return nil, errors.Validationf("move out of range: %d -> %d with %d cookbooks", from, to, len(order))
		}
		order = domain.Move(order, from, to)
		domain.Renumber(entries, order)
		return entries, nil
	})
}

// RenumberCookbooks rewrites all cookbook positions to 1..N in display order,
// repairing duplicate or missing positions without changing the visible order.
func (w *Workspace) RenumberCookbooks() error {
	return w.Mutate(domain.ResourceCookbooks, func(entries []domain.Entry) ([]domain.Entry, error) {
		domain.Renumber(entries, domain.OrderedIndexes(entries))
		return entries, nil
	})
}
