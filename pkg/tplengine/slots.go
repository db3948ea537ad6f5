package tplengine

import (
	"sort"
	"text/template"
	"text/template/parse"
)

// Slots returns the top-level data fields a template reads, sorted.
// Fields read inside range or with blocks refer to a different dot and are
// only counted when addressed through $.
func Slots(tmpl *template.Template) []string {
	seen := make(map[string]struct{})
	for _, t := range tmpl.Templates() {
		if t.Tree == nil || t.Root == nil {
			continue
		}
		collect(t.Root, true, seen)
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func collect(node parse.Node, topDot bool, seen map[string]struct{}) {
	switch n := node.(type) {
	case nil:
		return
	case *parse.ListNode:
		if n == nil {
			return
		}
		for _, child := range n.Nodes {
			collect(child, topDot, seen)
		}
	case *parse.ActionNode:
		collect(n.Pipe, topDot, seen)
	case *parse.IfNode:
		collectBranch(&n.BranchNode, topDot, topDot, seen)
	case *parse.RangeNode:
		collectBranch(&n.BranchNode, topDot, false, seen)
	case *parse.WithNode:
		collectBranch(&n.BranchNode, topDot, false, seen)
	case *parse.TemplateNode:
		collect(n.Pipe, topDot, seen)
	case *parse.PipeNode:
		if n == nil {
			return
		}
		for _, cmd := range n.Cmds {
			collect(cmd, topDot, seen)
		}
	case *parse.CommandNode:
		for _, arg := range n.Args {
			collect(arg, topDot, seen)
		}
	case *parse.ChainNode:
		collect(n.Node, topDot, seen)
	case *parse.FieldNode:
		if topDot && len(n.Ident) > 0 {
			seen[n.Ident[0]] = struct{}{}
		}
	case *parse.VariableNode:
		if len(n.Ident) > 1 && n.Ident[0] == "$" {
			seen[n.Ident[1]] = struct{}{}
		}
	}
}

func collectBranch(b *parse.BranchNode, pipeDot, bodyDot bool, seen map[string]struct{}) {
	collect(b.Pipe, pipeDot, seen)
	collect(b.List, bodyDot, seen)
	// else runs with the outer dot
	collect(b.ElseList, pipeDot, seen)
}
