package lottery

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/lotterykit/lottery/app"
	"github.com/lotterykit/lottery/chain/evm"
	"github.com/lotterykit/lottery/chainclient"
	contract "github.com/lotterykit/lottery/contracts/lottery"
)

func newServeCmd(cfg Config, rt *runtime) *cobra.Command {
	var (
		dev    bool
		listen string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the lottery web page",
		Long: `Serve the lottery web page and its JSON API.

With --dev, an in-memory chain is started with the well known development accounts, a fresh
lottery is deployed to it, and nothing is read from or written to the configured chain.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var (
				c       evm.Chain
				closeFn CloseFunc
				err     error
			)
			if dev {
				c, closeFn, err = cfg.Deps.DevChainLoader(ctx, rt.lggr)
			} else {
				c, closeFn, err = cfg.Deps.ChainLoader(ctx, rt.cfg, rt.lggr)
			}
			if err != nil {
				return fmt.Errorf("failed to connect to chain: %w", err)
			}
			defer closeFn()

			adapter := chainclient.New(c, rt.lggr)

			var l *contract.Lottery
			if dev {
				if l, _, err = contract.Deploy(ctx, adapter, c.DeployerKey.From); err != nil {
					return err
				}
			} else if l, err = openLottery(rt, c.Selector, adapter); err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			session := app.NewSession(l, adapter, rt.lggr, app.NewMetrics(reg))
			if _, err = session.Mount(ctx); err != nil {
				rt.lggr.Warnw("Initial load failed, serving anyway", "err", err)
			}

			if listen == "" {
				listen = rt.cfg.Server.Listen
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving lottery %s on http://%s\n", l.Address().Hex(), listen)

			return app.NewServer(session, adapter, rt.lggr, reg).ListenAndServe(ctx, listen)
		},
	}

	cmd.Flags().BoolVar(&dev, "dev", false, "Serve against a fresh in-memory chain")
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default: server.listen from the config)")

	return cmd
}
