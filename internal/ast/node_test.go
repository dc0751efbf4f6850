package ast

import "testing"

func TestSyncBinaryInvariant(t *testing.T) {
	pos := Pos{File: "t.es", Line: 1}
	left := NewLiteral(pos, 1)
	right := NewLiteral(pos, 2)
	n := NewBinaryOp(pos, "+", left, right)

	if n.Left != n.Children[0] || n.Right != n.Children[1] {
		t.Fatalf("left/right not aliased to children: left=%v right=%v children=%v", n.Left, n.Right, n.Children)
	}
	if left.Parent != n || right.Parent != n {
		t.Fatalf("children not reparented onto binary op")
	}

	third := NewLiteral(pos, 3)
	n.AddChild(third)
	if n.Left != n.Children[0] || n.Right != n.Children[1] {
		t.Fatalf("left/right invariant broken after AddChild")
	}
}

func TestReplaceChildSharesSubtree(t *testing.T) {
	// a += b  ->  a = a + b, sharing the `a` subtree.
	pos := Pos{File: "t.es", Line: 1}
	a := NewQNameNode(pos, QName{Name: "a"})
	b := NewQNameNode(pos, QName{Name: "b"})

	sum := NewBinaryOp(pos, "+", a, b)
	assign := NewAssignOp(pos, "=", a, sum)

	if assign.Children[0] != sum.Children[0] {
		t.Fatalf("expected shared LHS subtree, got distinct nodes")
	}
}

func TestStealDetachesFromParent(t *testing.T) {
	pos := Pos{File: "t.es", Line: 1}
	block := NewBlock(pos)
	child := NewLiteral(pos, 42)
	block.AddChild(child)

	stolen := Steal(child)
	if stolen != child {
		t.Fatalf("Steal should return the same node")
	}
	if len(block.Children) != 0 {
		t.Fatalf("expected child removed from parent, got %d children", len(block.Children))
	}
	if child.Parent != nil {
		t.Fatalf("expected stolen node to have nil parent")
	}
}

func TestWalkVisitsAllNodes(t *testing.T) {
	pos := Pos{File: "t.es", Line: 1}
	prog := NewProgram(pos)
	a := NewLiteral(pos, 1)
	b := NewLiteral(pos, 2)
	prog.AddChild(a)
	prog.AddChild(b)

	var seen []Kind
	Walk(prog, func(n *Node) bool {
		seen = append(seen, n.Kind)
		return true
	})

	if len(seen) != 3 {
		t.Fatalf("expected 3 visited nodes, got %d (%v)", len(seen), seen)
	}
}

func TestFlags(t *testing.T) {
	n := NewNode(KindBlock, Pos{})
	n.SetFlag(FlagCreateBlockObject)
	if !n.HasFlag(FlagCreateBlockObject) {
		t.Fatalf("expected flag set")
	}
	n.ClearFlag(FlagCreateBlockObject)
	if n.HasFlag(FlagCreateBlockObject) {
		t.Fatalf("expected flag cleared")
	}
}
