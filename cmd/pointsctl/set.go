package main

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/baharkarakas/loyalty-admin/internal/reconcile"
)

type assignment struct {
	ID  int64
	Raw string
}

// parseAssignment splits "42=+10" into id 42 and raw delta "+10". The delta
// itself is validated by the delta store.
func parseAssignment(arg string) (assignment, error) {
	idStr, raw, ok := strings.Cut(arg, "=")
	if !ok {
		return assignment{}, fmt.Errorf("%q: want id=delta", arg)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
	if err != nil || id <= 0 {
		return assignment{}, fmt.Errorf("%q: invalid record id", arg)
	}
	return assignment{ID: id, Raw: strings.TrimSpace(raw)}, nil
}

func newSetCommand(opts *rootOptions) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "set id=delta [id=delta ...]",
		Short: "Stage per-record deltas and save them as one batch",
		Example: `  pointsctl set 12=+50 13=-20
  pointsctl -l stock set --search "SKU-1" 7=+5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			as := make([]assignment, 0, len(args))
			for _, a := range args {
				parsed, err := parseAssignment(a)
				if err != nil {
					return err
				}
				as = append(as, parsed)
			}

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
			if err := discover(ctx, d, as); err != nil {
				return err
			}
			for _, a := range as {
				if err := d.Edit(a.ID, a.Raw); err != nil {
					return fmt.Errorf("record %d: %w", a.ID, err)
				}
			}

			res, err := d.Save(ctx)
			if res.Total > 0 {
				for _, id := range failedIDs(res) {
					fmt.Fprintf(cmd.ErrOrStderr(), "record %d: %v\n", id, res.Failures[id])
				}
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "narrow the pages walked to find the records")
	return cmd
}

// discover pages through the current result set until every assigned id
// has a known balance, since new totals are computed client-side.
func discover(ctx context.Context, d *reconcile.Driver, as []assignment) error {
	missing := func() []int64 {
		var ids []int64
		for _, a := range as {
			if !d.Known(a.ID) {
				ids = append(ids, a.ID)
			}
		}
		return ids
	}
	for page := 2; len(missing()) > 0; page++ {
		if page > d.Snapshot().Window.Pages() {
			return fmt.Errorf("records not found: %v", missing())
		}
		if err := d.SetPage(ctx, page); err != nil {
			return err
		}
	}
	return nil
}

func failedIDs(r reconcile.BatchResult) []int64 {
	ids := make([]int64, 0, len(r.Failures))
	for id := range r.Failures {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
