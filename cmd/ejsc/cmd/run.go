package cmd

import (
	"fmt"
	"os"

	"github.com/ejscript/ejsc/internal/compiler"
	"github.com/ejscript/ejsc/internal/module"
	"github.com/ejscript/ejsc/internal/source"
	"github.com/ejscript/ejsc/internal/vm"
	"github.com/spf13/cobra"
)

var runOpts compileFlags

var runCmd = &cobra.Command{
	Use:   "run <file.ejs|file.mod>...",
	Short: "Compile and execute Ejscript sources",
	Long: `Compile the given sources in memory and execute each module's
initializer, or execute pre-compiled.mod files directly.

Examples:
  ejsc run script.ejs
  ejsc run app.mod`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runOpts.register(runCmd)
}

func runRun(_ *cobra.Command, args []string) error {
	images, err := collectImages(args)
	if err != nil {
		return err
	}
	for _, img := range images {
		machine := vm.New(img, os.Stdout)
		if _, err := machine.RunInitializer(); err != nil {
			if v, ok := vm.Uncaught(err); ok {
				return fmt.Errorf("uncaught exception: %s", vm.ToString(v))
			}
			return err
		}
	}
	return nil
}

// collectImages compiles script inputs and loads pre-compiled ones, in
// argument order.
func collectImages(args []string) ([]*module.Image, error) {
	var images []*module.Image
	var scripts []string
	for _, a := range args {
		kind, err := source.Classify(a)
		if err != nil {
			return nil, err
		}
		if kind == source.KindModule {
			data, err := os.ReadFile(a)
			if err != nil {
				return nil, err
			}
			loaded, _, err := module.Read(data)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", a, err)
			}
			images = append(images, loaded...)
			continue
		}
		scripts = append(scripts, a)
	}
	if len(scripts) > 0 {
		files, err := source.LoadAll(scripts)
		if err != nil {
			return nil, err
		}
		opts, err := runOpts.options(scripts)
		if err != nil {
			return nil, err
		}
		opts.NoOut = true // execution never writes a module file
		res := compiler.Compile(files, opts)
		printDiagnostics(res.Status)
		if res.Status.Errors > 0 {
			return nil, fmt.Errorf("compilation failed with %d error(s)", res.Status.Errors)
		}
		images = append(images, res.Images...)
	}
	return images, nil
}
