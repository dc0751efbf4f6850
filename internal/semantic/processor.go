package semantic

import (
	"github.com/ejscript/ejsc/internal/ast"
	"github.com/ejscript/ejsc/internal/compstate"
	"github.com/ejscript/ejsc/internal/errors"
)

// Context is the state one Processor.Process call threads through all
// five phases: the diagnostic sink, the scope chain under construction,
// and a compile-state stack (no phase pushes frames onto it).
type Context struct {
	Status *errors.Status
	File   string
	Global *Scope
	St     compstate.Stack

	// Mode selects standard vs strict unresolved-name handling: strict
	// errors on an unresolved name, standard emits a dynamic access.
	Mode compstate.Mode

	// BindEnabled mirrors the CLI `--bind` option; false leaves every
	// reference to a module-level (global) name unbound so the VM
	// resolves those names dynamically. Locals, parameters and class
	// members still bind.
	BindEnabled bool

	// WarnLevel gates optional warnings: an unbound-name access only
	// warns at level >= 6.
	WarnLevel int

	// HashConstants holds the conditional-compilation symbol table Phase 2
	// evaluates `#expr` gates against — set by the driver
	// from `-D name[=value]` flags and the module's own top-level const
	// bindings.
	HashConstants map[string]any

	// NodeScope remembers which Scope Phase 1 created for each
	// Block/Function/Class/Interface/Catch node, so later phases can
	// re-enter the same scope chain when they walk the same subtree
	// without re-deriving it.
	NodeScope map[*ast.Node]*Scope
}

// NewContext creates a fresh Context with an empty global scope.
func NewContext(file string, status *errors.Status) *Context {
	return &Context{
		Status:        status,
		File:          file,
		Global:        NewScope(nil, "module"),
		BindEnabled:   true,
		WarnLevel:     1,
		HashConstants: make(map[string]any),
		NodeScope:     make(map[*ast.Node]*Scope),
	}
}

// Phase is one stage of the AstProcessor. Run must not be called again
// once it reports a fatal diagnostic on ctx.Status; Processor.Process
// stops the pipeline at that point.
type Phase interface {
	Name() string
	Run(prog *ast.Node, ctx *Context)
}

// Processor runs the fixed Define → Conditional → Fixup → Bind → Erase
// sequence. The order is fixed; the phases are not a pluggable pass list.
type Processor struct {
	phases []Phase
}

// Phases returns a fresh instance of the standard five-phase sequence,
// for drivers that need to interleave one phase across several files
// before advancing to the next.
func Phases() []Phase {
	return []Phase{
		&DefinePhase{},
		&ConditionalPhase{},
		&FixupPhase{},
		&BindPhase{},
		&ErasePhase{},
	}
}

// NewProcessor builds the standard five-phase pipeline.
func NewProcessor() *Processor {
	return &Processor{phases: Phases()}
}

// Process runs every phase over prog in order, stopping early if a phase
// leaves ctx.Status fatal.
func (p *Processor) Process(prog *ast.Node, ctx *Context) {
	for _, phase := range p.phases {
		phase.Run(prog, ctx)
		if ctx.Status.Fatal {
			return
		}
	}
}
