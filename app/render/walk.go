// Package render turns a flat todo collection into depth-tagged rows.
//
// A node is rendered, then each of its children is rendered the same way one
// level deeper. The walk uses an explicit stack, so arbitrarily deep task
// trees render without recursion.
package render

import (
	"nestodo/app/models"
	"nestodo/app/tree"
)

// Node is a todo positioned in the tree.
type Node struct {
	Todo        models.Todo
	Depth       int
	HasChildren bool
}

// Visitor is called once per node in pre-order. Returning false skips the
// node's children.
type Visitor func(Node) bool

type frame struct {
	todo  models.Todo
	depth int
}

// Walk visits every root and, below each, its descendants in input order.
func Walk(todos []models.Todo, visit Visitor) {
	idx := tree.NewIndex(todos)
	walk(idx, pushFrames(nil, idx.Roots(), 0), visit)
}

// WalkFrom visits the subtree rooted at id, starting at depth 0.
func WalkFrom(todos []models.Todo, id string, visit Visitor) {
	root, ok := tree.Find(todos, id)
	if !ok {
		return
	}
	walk(tree.NewIndex(todos), []frame{{todo: root}}, visit)
}

func walk(idx *tree.Index, stack []frame, visit Visitor) {
	seen := make(map[string]struct{})
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, dup := seen[f.todo.ID]; dup {
			continue
		}
		seen[f.todo.ID] = struct{}{}

		children := idx.Children(f.todo.ID)
		if !visit(Node{Todo: f.todo, Depth: f.depth, HasChildren: len(children) > 0}) {
			continue
		}
		stack = pushFrames(stack, children, f.depth+1)
	}
}

// pushFrames appends siblings in reverse so the first sibling pops first.
func pushFrames(stack []frame, todos []models.Todo, depth int) []frame {
	for i := len(todos) - 1; i >= 0; i-- {
		stack = append(stack, frame{todo: todos[i], depth: depth})
	}
	return stack
}

// Rows flattens the whole forest into pre-order rows.
func Rows(todos []models.Todo) []Node {
	rows := make([]Node, 0, len(todos))
	Walk(todos, func(n Node) bool {
		rows = append(rows, n)
		return true
	})
	return rows
}

// Subtree flattens the subtree rooted at id.
func Subtree(todos []models.Todo, id string) []Node {
	var rows []Node
	WalkFrom(todos, id, func(n Node) bool {
		rows = append(rows, n)
		return true
	})
	return rows
}
