package tree

import "nestodo/app/models"

// DescendantsOf returns the ids of every todo below id, in pre-order.
// The result never contains id itself and is empty when id is unknown.
func DescendantsOf(todos []models.Todo, id string) []string {
	return NewIndex(todos).Descendants(id)
}

// DeletionSetFor returns id followed by all of its descendants.
func DeletionSetFor(todos []models.Todo, id string) []string {
	return NewIndex(todos).DeletionSet(id)
}

// Descendants walks the subtree under id with an explicit stack so that deep
// trees cannot exhaust the goroutine stack. Ids already seen are skipped,
// which keeps the walk finite even if the input contains a cycle.
func (idx *Index) Descendants(id string) []string {
	out := []string{}
	seen := map[string]struct{}{id: {}}

	stack := reversedIDs(idx.children[id])
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[cur]; ok {
			continue
		}
		seen[cur] = struct{}{}
		out = append(out, cur)
		stack = append(stack, reversedIDs(idx.children[cur])...)
	}
	return out
}

// DeletionSet returns id plus its descendants. Whether id itself exists is
// left to the caller.
func (idx *Index) DeletionSet(id string) []string {
	return append([]string{id}, idx.Descendants(id)...)
}

// reversedIDs pushes siblings so the first one is popped first.
func reversedIDs(todos []models.Todo) []string {
	ids := make([]string, len(todos))
	for i, t := range todos {
		ids[len(todos)-1-i] = t.ID
	}
	return ids
}
