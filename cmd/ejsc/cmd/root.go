package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "ejsc",
	Short: "Ejscript compiler",
	Long: `ejsc compiles Ejscript (an ECMAScript-family scripting language with
class, interface, namespace, and module extensions) to binary.mod
modules for the companion virtual machine.

The pipeline is parse -> five-phase semantic analysis -> bytecode
generation -> module serialization; 'ejsc run' executes the result
in-process.`,
	Version: Version,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with.Name}}{{printf "%%s ".}}{{end}}{{printf "version %%s".Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))
}
