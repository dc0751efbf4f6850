// Package compiler drives the full pipeline: parse →
// five-phase AST processing → code generation → module serialization.
// Each pass runs over all input files before the next begins. The CLI
// subcommands in cmd/ejsc are thin wrappers over this package.
package compiler

import (
	"path/filepath"
	"strings"

	"github.com/ejscript/ejsc/internal/ast"
	"github.com/ejscript/ejsc/internal/codegen"
	"github.com/ejscript/ejsc/internal/compstate"
	"github.com/ejscript/ejsc/internal/errors"
	"github.com/ejscript/ejsc/internal/module"
	"github.com/ejscript/ejsc/internal/parser"
	"github.com/ejscript/ejsc/internal/semantic"
	"github.com/ejscript/ejsc/internal/source"
)

// Options carries the §6.1 CLI surface the core honors.
type Options struct {
	Optimize   int
	WarnLevel  int
	Bind       bool
	Debug      bool
	Empty      bool
	Merge      bool
	NoOut      bool
	OutputFile string
	TabWidth   int
	Mode       compstate.Mode
	Lang       compstate.Lang
	UseModules []string

	// ModuleName names the output module; empty means "default" for a
	// single input or per-file names otherwise.
	ModuleName string
	Version    module.Version

	// Defines seeds the conditional-compilation constants from
	// `-D name[=value]` flags.
	Defines map[string]any

	// Dependencies come from the.ejsmod.yaml manifest plus --use-module.
	Dependencies []module.Dependency
}

// Result is everything one Compile produced.
type Result struct {
	Status   *errors.Status
	Programs []*ast.Node
	Images   []*module.Image
	Bytes    []byte // serialized.mod stream; nil when output is suppressed

	// Generated keeps the per-file codegen output for disassembly.
	Generated []*codegen.Module
	Names     [][]string
}

// Compile runs the pipeline over files.
func Compile(files []source.File, opts Options) *Result {
	status := &errors.Status{}
	res := &Result{Status: status}

	// Pass 1: parse every file.
	sources := make([]parser.Source, len(files))
	for i, f := range files {
		sources[i] = parser.Source{File: f.Path, Text: f.Text}
	}
	parsed := parser.Parse(sources, parser.Options{Mode: opts.Mode, Lang: opts.Lang})
	for _, pr := range parsed {
		for _, e := range pr.Errors {
			status.Add(errors.Diagnostic{
				Severity: errors.SeverityError,
				File:     e.Pos.File,
				Line:     e.Pos.Line,
				Column:   e.Pos.Column,
				Source:   e.Pos.Text,
				Message:  e.Message,
			})
		}
		res.Programs = append(res.Programs, pr.Program)
	}
	if status.Fatal {
		return res
	}

	// Pass 2: the five AST phases, each across all files before the
	// next advances. The files share one global scope so
	// cross-file references bind.
	ctxs := make([]*semantic.Context, len(files))
	var shared *semantic.Context
	for i, f := range files {
		ctx := semantic.NewContext(f.Path, status)
		if shared == nil {
			shared = ctx
		} else {
			ctx.Global = shared.Global
			ctx.NodeScope = shared.NodeScope
		}
		ctx.Mode = opts.Mode
		ctx.BindEnabled = opts.Bind
		ctx.WarnLevel = opts.WarnLevel
		for k, v := range opts.Defines {
			ctx.HashConstants[k] = v
		}
		ctxs[i] = ctx
	}
	for _, phase := range semantic.Phases() {
		for i, prog := range res.Programs {
			if prog == nil {
				continue
			}
			phase.Run(prog, ctxs[i])
		}
		if status.Fatal {
			return res
		}
	}

	// Pass 3: code generation, one module per file.
	for i, prog := range res.Programs {
		if prog == nil {
			continue
		}
		name := moduleNameFor(files[i].Path, i, len(files), opts)
		pool := module.NewConstantPool()
		gen := codegen.NewGenerator(files[i].Path, status, opts.Optimize)
		gen.UsePool(pool)
		if opts.Debug {
			gen.EnableDebug()
		}
		mod := gen.CompileModule(prog, name)
		res.Generated = append(res.Generated, mod)
		res.Names = append(res.Names, gen.Names())

		img := imageFromModule(mod, pool, opts)
		res.Images = append(res.Images, img)
	}
	if status.Fatal {
		return res
	}

	// Pass 4: serialization — suppressed when any error occurred, since
	// a failed compile must not write a module file.
	if opts.NoOut || status.NoOut() {
		return res
	}
	data, err := module.Write(res.Images, module.WriteOptions{Empty: opts.Empty})
	if err != nil {
		status.Add(errors.Diagnostic{
			Severity: errors.SeverityFatal,
			Message:  err.Error(),
		})
		return res
	}
	res.Bytes = data
	return res
}

func moduleNameFor(path string, index, total int, opts Options) string {
	if opts.ModuleName != "" {
		if total == 1 || index == 0 && opts.Merge {
			return opts.ModuleName
		}
	}
	if total == 1 {
		if opts.ModuleName != "" {
			return opts.ModuleName
		}
		return "default"
	}
	base := filepath.Base(path)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" {
		return "default"
	}
	return base
}
