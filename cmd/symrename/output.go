package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/speakeasy-api/symrename/pkg/playground"
	"github.com/speakeasy-api/symrename/symex"
)

func writeYAML(w io.Writer, r *symex.Result) error {
	b, err := playground.NewReport(r).YAML()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// writeJSON prints the report, or each value the jq filter produces.
func writeJSON(ctx context.Context, w io.Writer, r *symex.Result, filter string) error {
	rep := playground.NewReport(r)
	values := []any{rep}
	if filter != "" {
		var err error
		if values, err = rep.Query(ctx, filter); err != nil {
			return err
		}
	}
	for _, v := range values {
		b, err := playground.JSON(v)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s\n", b); err != nil {
			return err
		}
	}
	return nil
}

const (
	colorReset = "\x1b[0m"
	colorPhi   = "\x1b[35m"
	colorRead  = "\x1b[36m"
	colorDim   = "\x1b[2m"
)

// writeTable prints one equation per line with aligned columns. Widths are
// measured in display cells so the equation column stays aligned when
// symbol names contain wide characters.
func writeTable(w io.Writer, r *symex.Result, color bool) error {
	rep := playground.NewReport(r)
	header := []string{"PC", "KIND", "LINEAGE", "EQUATION"}
	rows := make([][]string, 0, len(rep.Equations))
	for _, eq := range rep.Equations {
		rows = append(rows, []string{fmt.Sprint(eq.PC), eq.Kind, eq.Lineage, eq.Text})
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string, paint string) {
		for i, cell := range cells {
			last := i == len(cells)-1
			if !last {
				cell = runewidth.FillRight(cell, widths[i])
			}
			if paint != "" && i == 1 {
				cell = paint + cell + colorReset
			}
			sb.WriteString(cell)
			if !last {
				sb.WriteString("  ")
			}
		}
		sb.WriteByte('\n')
	}

	writeRow(header, "")
	for i, row := range rows {
		paint := ""
		if color {
			switch r.Equations[i].Kind {
			case symex.Phi:
				paint = colorPhi
			case symex.Read:
				paint = colorRead
			}
		}
		writeRow(row, paint)
	}
	for _, warn := range rep.Warnings {
		if color {
			fmt.Fprintf(&sb, "%swarning: %s%s\n", colorDim, warn, colorReset)
		} else {
			fmt.Fprintf(&sb, "warning: %s\n", warn)
		}
	}
	fmt.Fprintf(&sb, "%d equations, %d paths, %d steps\n", len(rep.Equations), len(rep.Paths), rep.Steps)

	_, err := io.WriteString(w, sb.String())
	return err
}
