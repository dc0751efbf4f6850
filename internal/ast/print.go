package ast

import (
	"fmt"
	"strings"
)

// Dump renders the tree as an indented listing for `ejsc parse`
// and for test fixtures. It is deliberately terse — one line per node,
// kind plus the payload field that is actually meaningful for that kind.
func Dump(n *Node) string {
	var sb strings.Builder
	dump(&sb, n, 0)
	return sb.String()
}

func dump(sb *strings.Builder, n *Node, depth int) {
	if n == nil {
		return
	}
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(n.Kind.String())
	if payload := payloadString(n); payload != "" {
		fmt.Fprintf(sb, " %s", payload)
	}
	if n.Disabled {
		sb.WriteString(" [disabled]")
	}
	sb.WriteString("\n")
	for _, c := range n.Children {
		dump(sb, c, depth+1)
	}
}

func payloadString(n *Node) string {
	switch n.Kind {
	case KindQName, KindClass, KindInterfaceDecl, KindFunction, KindVarDefinition:
		return n.QName.String()
	case KindLiteral:
		return fmt.Sprintf("%v", n.Literal)
	case KindBinaryOp, KindAssignOp, KindUnaryOp, KindPostfixOp:
		return n.Op
	case KindBreak, KindContinue, KindPragma:
		return n.Text
	default:
		return ""
	}
}
