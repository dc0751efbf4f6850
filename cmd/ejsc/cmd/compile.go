package cmd

import (
	"fmt"
	"os"

	"github.com/ejscript/ejsc/internal/codegen"
	"github.com/ejscript/ejsc/internal/compiler"
	"github.com/ejscript/ejsc/internal/errors"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

var (
	compileOpts       compileFlags
	compileDump       bool
	diagnosticsFormat string
	compileReport     string
)

var compileCmd = &cobra.Command{
	Use:   "compile <file.ejs>...",
	Short: "Compile Ejscript sources to a binary module",
	Long: `Compile one or more Ejscript source files to a .mod module file.

Examples:
  # Compile a script
  ejsc compile script.ejs

  # Compile several files into one merged module file
  ejsc compile --merge -o app.mod a.ejs b.ejs

  # Strict binding mode with a conditional-compilation constant
  ejsc compile --mode strict -D FEATURE=true script.ejs

  # Show the generated bytecode
  ejsc compile --dump script.ejs`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileOpts.register(compileCmd)
	compileCmd.Flags().BoolVar(&compileDump, "dump", false, "print disassembled bytecode to stderr")
	compileCmd.Flags().StringVar(&diagnosticsFormat, "diagnostics-format", "text", "diagnostic output: text|json")
	compileCmd.Flags().StringVar(&compileReport, "report", "", "emit a build report: yaml")
}

func runCompile(_ *cobra.Command, args []string) error {
	files, err := loadScripts(args)
	if err != nil {
		return err
	}
	opts, err := compileOpts.options(args)
	if err != nil {
		return err
	}

	res := compiler.Compile(files, opts)
	printDiagnostics(res.Status)

	if compileDump {
		dumpModules(res)
	}
	if compileReport == "yaml" {
		emitReport(res)
	}
	if res.Status.Errors > 0 {
		return fmt.Errorf("compilation failed with %d error(s)", res.Status.Errors)
	}
	if res.Bytes == nil {
		return nil
	}

	outFile := opts.OutputFile
	if outFile == "" {
		outFile = defaultOutputPath(args[0])
	}
	if err := os.WriteFile(outFile, res.Bytes, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outFile, err)
	}
	fmt.Printf("Compiled %d file(s) -> %s (%d bytes)\n", len(files), outFile, len(res.Bytes))
	return nil
}

func printDiagnostics(status *errors.Status) {
	if len(status.Diagnostics) == 0 {
		return
	}
	if diagnosticsFormat == "json" {
		doc, err := errors.ToJSON(status.Diagnostics)
		if err == nil {
			fmt.Fprintln(os.Stderr, doc)
			return
		}
	}
	fmt.Fprint(os.Stderr, errors.FormatAll("ejsc", status.Diagnostics))
}

func dumpModules(res *compiler.Result) {
	for i, mod := range res.Generated {
		var names []string
		if i < len(res.Names) {
			names = res.Names[i]
		}
		d := codegen.NewDisassembler(os.Stderr, names)
		if mod.Init != nil {
			_ = d.DisassembleFunction(mod.Init)
		}
		for _, fn := range mod.Functions {
			_ = d.DisassembleFunction(fn)
		}
		for _, c := range mod.Classes {
			if c.Constructor != nil {
				_ = d.DisassembleFunction(c.Constructor)
			}
			for _, m := range c.Methods {
				_ = d.DisassembleFunction(m)
			}
		}
	}
}

// buildReport is the `--report yaml` summary consumed by CI wrappers.
type buildReport struct {
	Modules  []string `yaml:"modules"`
	Errors   int      `yaml:"errors"`
	Warnings int      `yaml:"warnings"`
	Bytes    int      `yaml:"bytes"`
}

func emitReport(res *compiler.Result) {
	report := buildReport{
		Errors:   res.Status.Errors,
		Warnings: res.Status.Warnings,
		Bytes:    len(res.Bytes),
	}
	for _, img := range res.Images {
		report.Modules = append(report.Modules, img.Name)
	}
	if data, err := yaml.Marshal(report); err == nil {
		fmt.Fprint(os.Stderr, string(data))
	}
}
