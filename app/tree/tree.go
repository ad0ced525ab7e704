// Package tree derives the parent/child structure of a flat todo collection.
//
// Every function here is pure and keeps the relative order of its input.
package tree

import "nestodo/app/models"

// Index groups a flat collection by parent id.
type Index struct {
	roots    []models.Todo
	children map[string][]models.Todo
	ids      map[string]struct{}
}

// NewIndex builds an Index over todos in a single pass.
func NewIndex(todos []models.Todo) *Index {
	idx := &Index{
		children: make(map[string][]models.Todo),
		ids:      make(map[string]struct{}, len(todos)),
	}
	for _, t := range todos {
		idx.ids[t.ID] = struct{}{}
		if t.IsRoot() {
			idx.roots = append(idx.roots, t)
			continue
		}
		idx.children[*t.ParentID] = append(idx.children[*t.ParentID], t)
	}
	return idx
}

// Roots returns the todos without a parent.
func (idx *Index) Roots() []models.Todo {
	return idx.roots
}

// Children returns the direct children of id.
func (idx *Index) Children(id string) []models.Todo {
	return idx.children[id]
}

// Contains reports whether id is part of the indexed collection.
func (idx *Index) Contains(id string) bool {
	_, ok := idx.ids[id]
	return ok
}

// RootsOf returns the todos of the collection that have no parent.
func RootsOf(todos []models.Todo) []models.Todo {
	return append([]models.Todo{}, NewIndex(todos).Roots()...)
}

// ChildrenOf returns the todos whose parent is id.
func ChildrenOf(todos []models.Todo, id string) []models.Todo {
	return append([]models.Todo{}, NewIndex(todos).Children(id)...)
}

// Find returns the todo with the given id.
func Find(todos []models.Todo, id string) (models.Todo, bool) {
	for _, t := range todos {
		if t.ID == id {
			return t, true
		}
	}
	return models.Todo{}, false
}

// StatsOf counts completed todos against the collection size.
func StatsOf(todos []models.Todo) models.Stats {
	s := models.Stats{Total: len(todos)}
	for _, t := range todos {
		if t.Completed {
			s.Completed++
		}
	}
	return s
}
