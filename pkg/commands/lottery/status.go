package lottery

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/lotterykit/lottery/pkg/units"
)

func newStatusCmd(cfg Config, rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the manager, players and balance of the lottery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			c, adapter, closeFn, err := connect(ctx, cfg, rt)
			if err != nil {
				return err
			}
			defer closeFn()

			l, err := openLottery(rt, c.Selector, adapter)
			if err != nil {
				return err
			}

			snap, err := l.Snapshot(ctx)
			if err != nil {
				return err
			}
			balance, err := adapter.FromWei(snap.Balance, units.Ether)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Lottery %s on %s\n", l.Address().Hex(), adapter.ChainName())
			fmt.Fprintf(out, "Manager: %s\n", snap.Manager.Hex())
			fmt.Fprintf(out, "Balance: %s ether\n", balance)
			fmt.Fprintf(out, "Players: %d\n", len(snap.Players))
			if len(snap.Players) == 0 {
				return nil
			}

			table := tablewriter.NewWriter(out)
			table.SetAutoWrapText(false)
			table.SetHeader([]string{"#", "Player"})
			for i, p := range snap.Players {
				table.Append([]string{strconv.Itoa(i), p.Hex()})
			}
			table.Render()

			return nil
		},
	}
}
