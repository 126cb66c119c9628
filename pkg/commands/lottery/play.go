package lottery

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lotterykit/lottery/pkg/units"
)

func newEnterCmd(cfg Config, rt *runtime) *cobra.Command {
	var (
		from   string
		amount string
	)

	cmd := &cobra.Command{
		Use:   "enter",
		Short: "Enter the lottery",
		Example: `  lottery enter --amount 0.02
  lottery enter --amount 0.5 --from 0x70997970C51812dc3A010C7d01b50e0d17dc79C8`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			c, adapter, closeFn, err := connect(ctx, cfg, rt)
			if err != nil {
				return err
			}
			defer closeFn()

			value, err := adapter.ToWei(amount, units.Ether)
			if err != nil {
				return err
			}
			sender, err := resolveFrom(ctx, adapter, from)
			if err != nil {
				return err
			}
			l, err := openLottery(rt, c.Selector, adapter)
			if err != nil {
				return err
			}

			tx, err := l.Enter(ctx, sender, value)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "You have been entered! %s paid %s ether (tx %s)\n",
				sender.Hex(), amount, tx.Hash().Hex(),
			)

			return nil
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "Amount of ether to enter with (required)")
	cmd.Flags().StringVar(&from, "from", "", "Entering account (default: first local account)")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func newPickWinnerCmd(cfg Config, rt *runtime) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "pick-winner",
		Short: "Pay the whole balance to a random player (manager only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			c, adapter, closeFn, err := connect(ctx, cfg, rt)
			if err != nil {
				return err
			}
			defer closeFn()

			sender, err := resolveFrom(ctx, adapter, from)
			if err != nil {
				return err
			}
			l, err := openLottery(rt, c.Selector, adapter)
			if err != nil {
				return err
			}

			tx, err := l.PickWinner(ctx, sender)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "A winner has been picked! (tx %s)\n", tx.Hash().Hex())

			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Manager account (default: first local account)")

	return cmd
}
