package cmd

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ejscript/ejsc/internal/module"
	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"
)

var docHTML bool

var docCmd = &cobra.Command{
	Use:   "doc <file.mod>",
	Short: "Render a compiled module's documentation",
	Long: `Extract the Doc sections from a compiled.mod file and render
per-module API documentation, without needing the original sources.
Doc comments are Markdown; --html renders them through goldmark.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		images, _, err := module.Read(data)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		md := renderModuleDocs(images)
		if !docHTML {
			fmt.Print(md)
			return nil
		}
		var html bytes.Buffer
		if err := goldmark.Convert([]byte(md), &html); err != nil {
			return err
		}
		fmt.Print(html.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(docCmd)
	docCmd.Flags().BoolVar(&docHTML, "html", false, "render to HTML instead of Markdown")
}

// renderModuleDocs builds one Markdown document from the images' doc
// sections, in module/class/function order.
func renderModuleDocs(images []*module.Image) string {
	var sb strings.Builder
	for _, img := range images {
		fmt.Fprintf(&sb, "# Module %s %s\n\n", img.Name, img.Version)
		for _, c := range img.Classes {
			fmt.Fprintf(&sb, "## class %s", c.Name)
			if c.Base != "" {
				fmt.Fprintf(&sb, " extends %s", c.Base)
			}
			sb.WriteString("\n\n")
			if c.Doc != "" {
				sb.WriteString(c.Doc + "\n\n")
			}
			if c.Constructor != nil {
				writeFunctionDoc(&sb, "###", c.Constructor)
			}
			for _, m := range c.Methods {
				writeFunctionDoc(&sb, "###", m)
			}
		}
		for _, fn := range img.Functions {
			writeFunctionDoc(&sb, "##", fn)
		}
		for _, p := range img.Globals {
			fmt.Fprintf(&sb, "## var %s", p.Name)
			if p.Type != "" {
				fmt.Fprintf(&sb, ": %s", p.Type)
			}
			sb.WriteString("\n\n")
			if p.Doc != "" {
				sb.WriteString(p.Doc + "\n\n")
			}
		}
	}
	return sb.String()
}

func writeFunctionDoc(sb *strings.Builder, heading string, fn *module.Function) {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Name
		if p.Type != "" {
			params[i] += ": " + p.Type
		}
	}
	fmt.Fprintf(sb, "%s function %s(%s)", heading, fn.Name, strings.Join(params, ", "))
	if fn.ResultType != "" {
		fmt.Fprintf(sb, ": %s", fn.ResultType)
	}
	sb.WriteString("\n\n")
	if fn.Doc != "" {
		sb.WriteString(fn.Doc + "\n\n")
	}
}
