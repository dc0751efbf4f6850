package cmd

import (
	"fmt"
	"os"

	"github.com/ejscript/ejsc/internal/ast"
	"github.com/ejscript/ejsc/internal/errors"
	"github.com/ejscript/ejsc/internal/parser"
	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file.ejs>...",
	Short: "Parse source files and dump their ASTs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		files, err := loadScripts(args)
		if err != nil {
			return err
		}
		sources := make([]parser.Source, len(files))
		for i, f := range files {
			sources[i] = parser.Source{File: f.Path, Text: f.Text}
		}
		errorCount := 0
		for _, res := range parser.Parse(sources, parser.Options{}) {
			fmt.Printf("== %s ==\n", res.File)
			if res.Program != nil {
				fmt.Print(ast.Dump(res.Program))
			}
			for _, e := range res.Errors {
				errorCount++
				d := errors.Diagnostic{
					Severity: errors.SeverityError,
					File:     e.Pos.File, Line: e.Pos.Line, Column: e.Pos.Column,
					Source: e.Pos.Text, Message: e.Message,
				}
				fmt.Fprint(os.Stderr, d.Format("ejsc"))
			}
		}
		if errorCount > 0 {
			return fmt.Errorf("parsing failed with %d error(s)", errorCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}
