package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ejscript/ejsc/internal/compiler"
	"github.com/ejscript/ejsc/internal/compstate"
	"github.com/ejscript/ejsc/internal/module"
	"github.com/ejscript/ejsc/internal/source"
	"github.com/spf13/cobra"
)

// compileFlags is the shared §6.1 option surface `compile` and `run`
// both expose.
type compileFlags struct {
	optimize      int
	warnLevel     int
	bind          bool
	debug         bool
	empty         bool
	merge         bool
	noout         bool
	output        string
	tabWidth      int
	mode          string
	lang          string
	useModules    []string
	defines       []string
	moduleName    string
	moduleVersion string
}

func (cf *compileFlags) register(c *cobra.Command) {
	c.Flags().IntVarP(&cf.optimize, "optimize", "O", 1, "optimization level (0 disables short jumps)")
	c.Flags().IntVar(&cf.warnLevel, "warn", 1, "warning level")
	c.Flags().BoolVar(&cf.bind, "bind", true, "enable early slot binding")
	c.Flags().BoolVar(&cf.debug, "debug", false, "emit debug source-position instructions")
	c.Flags().BoolVar(&cf.empty, "empty", false, "build for the empty core interpreter")
	c.Flags().BoolVar(&cf.merge, "merge", false, "aggregate dependent modules into the output")
	c.Flags().BoolVar(&cf.noout, "noout", false, "compile without writing output")
	c.Flags().StringVarP(&cf.output, "output", "o", "", "output file (default: <input>.mod)")
	c.Flags().IntVar(&cf.tabWidth, "tab-width", 4, "tab width for caret diagnostics")
	c.Flags().StringVar(&cf.mode, "mode", "standard", "default binding mode: standard|strict")
	c.Flags().StringVar(&cf.lang, "lang", "plus", "language level: ecma|plus|fixed")
	c.Flags().StringArrayVar(&cf.useModules, "use-module", nil, "pre-loaded module dependency (repeatable)")
	c.Flags().StringArrayVarP(&cf.defines, "define", "D", nil, "conditional-compilation constant name[=value]")
	c.Flags().StringVar(&cf.moduleName, "module-name", "", "output module name (default: 'default')")
	c.Flags().StringVar(&cf.moduleVersion, "module-version", "", "output module version (major.minor.patch)")
}

// options resolves the flag values (plus any.ejsmod.yaml manifest next
// to the first input) into compiler.Options.
func (cf *compileFlags) options(inputs []string) (compiler.Options, error) {
	opts := compiler.Options{
		Optimize:   cf.optimize,
		WarnLevel:  cf.warnLevel,
		Bind:       cf.bind,
		Debug:      cf.debug,
		Empty:      cf.empty,
		Merge:      cf.merge,
		NoOut:      cf.noout,
		OutputFile: cf.output,
		TabWidth:   cf.tabWidth,
		UseModules: cf.useModules,
		ModuleName: cf.moduleName,
		Defines:    parseDefines(cf.defines),
	}

	switch cf.mode {
	case "strict":
		opts.Mode = compstate.ModeStrict
	case "standard", "":
		opts.Mode = compstate.ModeStandard
	default:
		return opts, fmt.Errorf("invalid --mode %q (want standard|strict)", cf.mode)
	}
	switch cf.lang {
	case "ecma":
		opts.Lang = compstate.LangECMA
	case "plus", "":
		opts.Lang = compstate.LangPlus
	case "fixed":
		opts.Lang = compstate.LangFixed
	default:
		return opts, fmt.Errorf("invalid --lang %q (want ecma|plus|fixed)", cf.lang)
	}

	version, err := module.ParseVersion(cf.moduleVersion)
	if err != nil {
		return opts, err
	}
	opts.Version = version

	if len(inputs) > 0 {
		manifest, err := module.LoadManifest(filepath.Join(filepath.Dir(inputs[0]), module.ManifestName))
		if err != nil {
			return opts, err
		}
		if manifest != nil {
			if opts.ModuleName == "" {
				opts.ModuleName = manifest.Name
			}
			if cf.moduleVersion == "" && manifest.Version != "" {
				if opts.Version, err = module.ParseVersion(manifest.Version); err != nil {
					return opts, err
				}
			}
			if opts.Dependencies, err = manifest.Resolve(); err != nil {
				return opts, err
			}
		}
	}
	for _, um := range cf.useModules {
		opts.Dependencies = append(opts.Dependencies, module.Dependency{
			Name: um,
			Max:  module.Version{Major: module.VersionFactor - 1},
		})
	}
	return opts, nil
}

// parseDefines turns -D name[=value] flags into hash constants: a bare
// name defines true; values parse as bool, number, or string.
func parseDefines(defines []string) map[string]any {
	if len(defines) == 0 {
		return nil
	}
	out := make(map[string]any, len(defines))
	for _, d := range defines {
		name, value, found := strings.Cut(d, "=")
		if !found {
			out[name] = true
			continue
		}
		switch value {
		case "true":
			out[name] = true
		case "false":
			out[name] = false
		default:
			var f float64
			if _, err := fmt.Sscanf(value, "%g", &f); err == nil {
				out[name] = f
			} else {
				out[name] = value
			}
		}
	}
	return out
}

// loadScripts loads the script inputs in argument order, rejecting
// non-script extensions and duplicate paths.
func loadScripts(paths []string) ([]source.File, error) {
	for _, p := range paths {
		kind, err := source.Classify(p)
		if err != nil {
			return nil, err
		}
		if kind != source.KindScript {
			return nil, fmt.Errorf("%s: pre-compiled modules are inputs to 'ejsc doc' or 'ejsc run', not recompilation", p)
		}
	}
	return source.LoadAll(paths)
}

func defaultOutputPath(first string) string {
	ext := filepath.Ext(first)
	if ext != "" {
		return strings.TrimSuffix(first, ext) + ".mod"
	}
	return first + ".mod"
}
