package cmd

import (
	"fmt"

	"github.com/ejscript/ejsc/internal/lexer"
	"github.com/ejscript/ejsc/internal/source"
	"github.com/spf13/cobra"
)

var lexCmd = &cobra.Command{
	Use:   "lex <file.ejs>",
	Short: "Dump the token stream of a source file",
	Long: `Tokenize a source file and print one token per line, for debugging
the lexer's modes (regex literals, XML literals, shebang stripping).`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		f, err := source.Load(args[0])
		if err != nil {
			return err
		}
		l := lexer.New(f.Path, f.Text)
		for {
			tok := l.NextToken()
			fmt.Printf("%4d:%-3d %-12s %q\n", tok.Pos.Line, tok.Pos.Column, tok.Type, tok.Literal)
			if tok.Type == lexer.EOF {
				break
			}
		}
		for _, e := range l.Errors() {
			fmt.Printf("error: %d:%d: %s\n", e.Pos.Line, e.Pos.Column, e.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lexCmd)
}
