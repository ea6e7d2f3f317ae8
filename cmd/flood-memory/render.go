package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/flood-ai/flood-memory/internal/memory"
	"github.com/flood-ai/flood-memory/internal/server/graph"
)

var (
	// Styles
	idStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205"))

	tagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	contentStyle = lipgloss.NewStyle().
			PaddingLeft(2)
)

// renderer prints command results: styled on a terminal, JSON otherwise.
type renderer struct {
	out    io.Writer
	styled bool
}

func newRenderer(out io.Writer, forceJSON bool) *renderer {
	return &renderer{out: out, styled: !forceJSON && isTerminal(out)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (r *renderer) render(v any) error {
	if !r.styled {
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	switch v := v.(type) {
	case *graph.Node:
		fmt.Fprintln(r.out, formatNode(v, ""))
	case []*graph.Node:
		if len(v) == 0 {
			fmt.Fprintln(r.out, dimStyle.Render("no matching memories"))
		}
		for _, n := range v {
			fmt.Fprintln(r.out, formatNode(n, ""))
		}
	case []*memory.Connection:
		for _, c := range v {
			fmt.Fprintln(r.out, formatNode(c.Node, fmt.Sprintf("[%d] ", c.Distance)))
		}
	case *memory.Deletion:
		fmt.Fprintln(r.out, dimStyle.Render("deleted ")+idStyle.Render(v.Deleted))
	default:
		return fmt.Errorf("cannot render %T", v)
	}
	return nil
}

func formatNode(n *graph.Node, prefix string) string {
	var b strings.Builder

	b.WriteString(prefix + idStyle.Render(n.ID))
	if len(n.Tags) > 0 {
		tags := make([]string, len(n.Tags))
		for i, t := range n.Tags {
			tags[i] = "#" + t
		}
		b.WriteString(" " + tagStyle.Render(strings.Join(tags, " ")))
	}
	b.WriteString("\n")
	b.WriteString(contentStyle.Render(n.Content))
	b.WriteString("\n")

	meta := fmt.Sprintf("created %s · accessed %d×", n.CreatedAt.Format("2006-01-02 15:04"), n.AccessCount)
	if n.Source != "" {
		meta += " · " + n.Source
	}
	if n.Links.Len() > 0 {
		meta += " · links " + strings.Join(n.Links.IDs(), ", ")
	}
	b.WriteString(contentStyle.Render(dimStyle.Render(meta)))
	b.WriteString("\n")

	return b.String()
}
