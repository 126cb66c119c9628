package lottery

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/lotterykit/lottery/pkg/units"
)

func newAccountsCmd(cfg Config, rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List the local accounts and their balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			_, adapter, closeFn, err := connect(ctx, cfg, rt)
			if err != nil {
				return err
			}
			defer closeFn()

			accounts, err := adapter.Accounts(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Accounts on %s:\n", adapter.ChainName())

			table := tablewriter.NewWriter(out)
			table.SetAutoWrapText(false)
			table.SetHeader([]string{"#", "Account", "Balance (ether)"})
			for i, a := range accounts {
				bal, err := adapter.Balance(ctx, a)
				if err != nil {
					return err
				}
				eth, err := adapter.FromWei(bal, units.Ether)
				if err != nil {
					return err
				}
				table.Append([]string{strconv.Itoa(i), a.Hex(), eth})
			}
			table.Render()

			return nil
		},
	}
}
