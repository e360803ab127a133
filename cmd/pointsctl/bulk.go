package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/baharkarakas/loyalty-admin/internal/reconcile"
)

func newBulkCommand(opts *rootOptions) *cobra.Command {
	var (
		delta int64
		ack   bool
	)
	cmd := &cobra.Command{
		Use:   "bulk --delta N --acknowledge-irreversible",
		Short: "Add N to every eligible record of the ledger",
		Long: `Add a signed delta to every eligible record of the ledger.

The operation cannot be undone. Balances are floored at zero by the server.
Your password is read from stdin as the confirmation secret.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := opts.driver(cmd)
			defer d.Close()
			intent, err := d.RequestBulkDelta(delta)
			if err != nil {
				return err
			}
			return confirmAndSubmit(cmd, d, intent, ack)
		},
	}
	cmd.Flags().Int64Var(&delta, "delta", 0, "signed amount to add")
	cmd.Flags().BoolVar(&ack, "acknowledge-irreversible", false, "confirm that the change cannot be undone")
	_ = cmd.MarkFlagRequired("delta")
	return cmd
}

func newResetCommand(opts *rootOptions) *cobra.Command {
	var ack bool
	cmd := &cobra.Command{
		Use:   "reset --acknowledge-irreversible",
		Short: "Set every eligible record of the ledger to zero",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := opts.driver(cmd)
			defer d.Close()
			return confirmAndSubmit(cmd, d, d.RequestReset(), ack)
		},
	}
	cmd.Flags().BoolVar(&ack, "acknowledge-irreversible", false, "confirm that the change cannot be undone")
	return cmd
}

func confirmAndSubmit(cmd *cobra.Command, d *reconcile.Driver, intent *reconcile.BulkIntent, ack bool) error {
	conf, err := intent.Acknowledge(ack)
	if err != nil {
		return fmt.Errorf("%w (pass --acknowledge-irreversible)", err)
	}
	secret, err := readSecret(cmd, "secret: ")
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := d.Open(ctx); err != nil {
		return err
	}
	_, err = conf.Submit(ctx, secret)
	return err
}

// readSecret reads one line from the command's stdin, prompting on stderr.
func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("no secret on stdin")
	}
	return strings.TrimRight(line, "\r\n"), nil
}
