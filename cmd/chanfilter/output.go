package main

import (
	"encoding/json"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"chanfilter/internal/catalog/models"
	"chanfilter/internal/client/scanner"
)

// decisionView is the JSON shape of a decision.
type decisionView struct {
	Ref         string `json:"ref,omitempty"`
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`
	Categories  []int  `json:"channel_categories"`
	Blocked     bool   `json:"blocked"`
	Source      string `json:"source"`
}

func viewOf(d scanner.Decision) decisionView {
	return decisionView{
		Ref:         d.Item.Ref,
		ChannelID:   d.Item.Key.Handle,
		ChannelName: d.Item.Key.DisplayName,
		Categories:  d.Categories.Ints(),
		Blocked:     d.Blocked,
		Source:      string(d.Source),
	}
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// useTable reports whether human-readable tables should be written.
func (c *commandContext) useTable(cmd *cobra.Command) bool {
	return !c.flags.json && isTerminal(cmd.OutOrStdout())
}

func sortDecisions(decisions []scanner.Decision) {
	sort.SliceStable(decisions, func(i, j int) bool {
		a, b := decisions[i].Item.Ref, decisions[j].Item.Ref
		ai, aerr := strconv.Atoi(a)
		bi, berr := strconv.Atoi(b)
		if aerr == nil && berr == nil {
			return ai < bi
		}
		return a < b
	})
}

func renderDecisions(decisions []scanner.Decision) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Ref", "Handle", "Name", "Categories", "Action", "Source"})
	for _, d := range decisions {
		action := "show"
		if d.Blocked {
			action = text.FgRed.Sprint("hide")
		}
		tw.AppendRow(table.Row{
			d.Item.Ref,
			d.Item.Key.Handle,
			d.Item.Key.DisplayName,
			categoryLabels(d.Categories),
			action,
			string(d.Source),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
	})
	return tw.Render()
}

func categoryLabels(set models.CategorySet) string {
	labels := make([]string, len(set))
	for i, c := range set {
		labels[i] = c.String()
	}
	return strings.Join(labels, ", ")
}

func renderKeyValues(rows [][2]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	for _, r := range rows {
		tw.AppendRow(table.Row{r[0], r[1]})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, Colors: text.Colors{text.Bold}},
	})
	return tw.Render()
}
