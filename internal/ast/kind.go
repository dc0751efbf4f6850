package ast

// Kind tags the variant a Node carries. The parser, AstProcessor, and
// CodeGen each dispatch on Kind rather than on a per-node Go type — see
// DESIGN.md for why the AST is one tagged struct instead of ~60 interfaces.
type Kind int

const (
	KindInvalid Kind = iota

	// Program structure
	KindProgram
	KindModule
	KindDirectives
	KindBlock
	KindPragmas
	KindPragma
	KindUseNamespace
	KindUseModule

	// Declarations
	KindClass
	KindInterfaceDecl
	KindFunction
	KindVarDefinition
	KindField

	// Names and references
	KindQName
	KindDot
	KindRef
	KindHash

	// Calls and expressions
	KindCall
	KindNew
	KindSuper
	KindThis
	KindBinaryOp
	KindAssignOp
	KindUnaryOp
	KindPostfixOp
	KindLiteral
	KindObjectLiteral
	KindArrayLiteral
	KindVoid
	KindAttributes

	// Statements
	KindIf
	KindFor
	KindForIn
	KindDo
	KindSwitch
	KindCaseLabel
	KindCaseElements
	KindBreak
	KindContinue
	KindReturn
	KindThrow
	KindTry
	KindCatch
	KindCatchClauses
	KindCatchArg
	KindWith

	// Grouping / plumbing nodes
	KindArgs
	KindExpressions
	KindTypeIdentifiers
	KindNop
	KindEndFunction
)

//go:generate stringer -type=Kind

var kindNames = map[Kind]string{
	KindInvalid:         "Invalid",
	KindProgram:         "Program",
	KindModule:          "Module",
	KindDirectives:      "Directives",
	KindBlock:           "Block",
	KindPragmas:         "Pragmas",
	KindPragma:          "Pragma",
	KindUseNamespace:    "UseNamespace",
	KindUseModule:       "UseModule",
	KindClass:           "Class",
	KindInterfaceDecl:   "Interface",
	KindFunction:        "Function",
	KindVarDefinition:   "VarDefinition",
	KindField:           "Field",
	KindQName:           "QName",
	KindDot:             "Dot",
	KindRef:             "Ref",
	KindHash:            "Hash",
	KindCall:            "Call",
	KindNew:             "New",
	KindSuper:           "Super",
	KindThis:            "This",
	KindBinaryOp:        "BinaryOp",
	KindAssignOp:        "AssignOp",
	KindUnaryOp:         "UnaryOp",
	KindPostfixOp:       "PostfixOp",
	KindLiteral:         "Literal",
	KindObjectLiteral:   "ObjectLiteral",
	KindArrayLiteral:    "ArrayLiteral",
	KindVoid:            "Void",
	KindAttributes:      "Attributes",
	KindIf:              "If",
	KindFor:             "For",
	KindForIn:           "ForIn",
	KindDo:              "Do",
	KindSwitch:          "Switch",
	KindCaseLabel:       "CaseLabel",
	KindCaseElements:    "CaseElements",
	KindBreak:           "Break",
	KindContinue:        "Continue",
	KindReturn:          "Return",
	KindThrow:           "Throw",
	KindTry:             "Try",
	KindCatch:           "Catch",
	KindCatchClauses:    "CatchClauses",
	KindCatchArg:        "CatchArg",
	KindWith:            "With",
	KindArgs:            "Args",
	KindExpressions:     "Expressions",
	KindTypeIdentifiers: "TypeIdentifiers",
	KindNop:             "Nop",
	KindEndFunction:     "EndFunction",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}
