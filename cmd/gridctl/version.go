package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/gridctl/internal/resource"
	"github.com/alexisbeaulieu97/gridctl/internal/resources"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display build information and supported resource types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, version)
				return nil
			}
			fmt.Fprintf(out, "gridctl %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
			printResourceTypes(out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Print only the version number")

	return cmd
}

// printResourceTypes lists every handler with the oldest grid release it
// supports. Metadata needs no client.
func printResourceTypes(out io.Writer) {
	var metas []resource.Metadata
	for _, h := range resources.Handlers(nil, nil) {
		metas = append(metas, h.Metadata())
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Type < metas[j].Type })

	fmt.Fprintln(out, "\nSupported resource types:")
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Type", "Minimum grid", "Description"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	for _, meta := range metas {
		minimum := "any"
		if !meta.MinVersion.IsZero() {
			minimum = meta.MinVersion.String()
		}
		table.Append([]string{meta.Type, minimum, meta.Description})
	}
	table.Render()
}
