package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/baharkarakas/loyalty-admin/internal/reconcile"
)

func newListCommand(opts *rootOptions) *cobra.Command {
	var (
		page   int
		search string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show one page of records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := opts.driver(cmd)
			defer d.Close()
			ctx := cmd.Context()
			if err := d.Open(ctx); err != nil {
				return err
			}
			if search != "" {
				if err := d.SearchNow(ctx, search); err != nil {
					return err
				}
			}
			if page > 1 {
				if err := d.SetPage(ctx, page); err != nil {
					return err
				}
			}
			return printPage(cmd.OutOrStdout(), d.Snapshot())
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number")
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by name or code")
	return cmd
}

func printPage(w io.Writer, s reconcile.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCODE\tBALANCE\tDELTA\tNEW TOTAL")
	for _, r := range s.Rows {
		delta := ""
		if r.Delta != 0 {
			delta = fmt.Sprintf("%+d", r.Delta)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%d\n", r.Record.ID, r.Record.Name, r.Record.Code, r.Record.Balance, delta, r.NewTotal)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "page %d of %d, %d records\n", s.Window.Page, max(s.Window.Pages(), 1), s.Window.Total)
	return nil
}
