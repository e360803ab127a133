package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/baharkarakas/loyalty-admin/internal/apiclient"
	"github.com/baharkarakas/loyalty-admin/internal/config"
	"github.com/baharkarakas/loyalty-admin/internal/logger"
	"github.com/baharkarakas/loyalty-admin/internal/models"
	"github.com/baharkarakas/loyalty-admin/internal/reconcile"
)

// rootOptions holds global flags plus the resolved console profile.
type rootOptions struct {
	ConfigPath string
	APIURL     string
	Ledger     string
	Token      string
	Verbose    bool

	profile config.Console
	ledger  models.Ledger
	log     *slog.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "pointsctl",
		Short:         "Reconcile loyalty points and stock balances",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", config.DefaultConsolePath(), "console profile (YAML)")
	cmd.PersistentFlags().StringVar(&opts.APIURL, "api", "", "records API base URL")
	cmd.PersistentFlags().StringVarP(&opts.Ledger, "ledger", "l", "", "ledger to work on (points|stock)")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", "", "bearer token")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging on stderr")

	cmd.AddCommand(newLoginCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newSetCommand(opts))
	cmd.AddCommand(newBulkCommand(opts))
	cmd.AddCommand(newResetCommand(opts))

	return cmd
}

// resolve merges profile, env and flags. Flags win.
func (o *rootOptions) resolve(cmd *cobra.Command) error {
	p, err := config.LoadConsole(o.ConfigPath)
	if err != nil {
		return err
	}
	if o.APIURL != "" {
		p.APIURL = o.APIURL
	}
	if o.Ledger != "" {
		p.Ledger = o.Ledger
	}
	if o.Token != "" {
		p.Token = o.Token
	}
	l, err := models.ParseLedger(p.Ledger)
	if err != nil {
		return fmt.Errorf("ledger %q: %w", p.Ledger, err)
	}
	level := "warn"
	if o.Verbose {
		level = "debug"
	}
	o.profile = p
	o.ledger = l
	o.log = logger.NewWriter(cmd.ErrOrStderr(), p.Env, level)
	return nil
}

func (o *rootOptions) client() *apiclient.Client {
	return apiclient.New(o.profile.APIURL, o.ledger,
		apiclient.WithToken(o.profile.Token),
		apiclient.WithLogger(o.log),
	)
}

// driver builds an engine session whose notices are printed on cmd's
// output, one line each.
func (o *rootOptions) driver(cmd *cobra.Command) *reconcile.Driver {
	c := o.client()
	out := cmd.OutOrStdout()
	return reconcile.NewDriver(c, c, c, reconcile.Options{
		PageSize:   o.profile.PageSize,
		Debounce:   o.profile.SearchDebounce,
		BatchLimit: o.profile.BatchConcurrency,
		Logger:     o.log,
		Notify: func(n reconcile.Notice) {
			fmt.Fprintf(out, "[%s] %s\n", n.Kind, n.Text)
		},
	})
}
