package lottery

import (
	"fmt"

	"github.com/spf13/cobra"

	contract "github.com/lotterykit/lottery/contracts/lottery"
	"github.com/lotterykit/lottery/deployment"
)

func newDeployCmd(cfg Config, rt *runtime) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a new lottery and record it in the address book",
		Long: `Deploy a new lottery contract. The sender becomes the manager, the only account
allowed to pick a winner. The address is recorded in the address book, where later commands
find it.`,
		Args: cobra.NoArgs,
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

			// Load first so a broken address book fails before anything is deployed
			ab, err := deployment.LoadAddressBookFile(rt.cfg.Lottery.AddressBook)
			if err != nil {
				return err
			}

			l, tx, err := contract.Deploy(ctx, adapter, sender)
			if err != nil {
				return err
			}

			if err = ab.Save(c.Selector, l.Address().Hex(), contract.TypeAndVersion); err != nil {
				return fmt.Errorf("failed to record deployment: %w", err)
			}
			if err = deployment.WriteAddressBookFile(rt.cfg.Lottery.AddressBook, ab); err != nil {
				return err
			}

			rt.lggr.Infow("Recorded deployment",
				"address", l.Address().Hex(), "addressBook", rt.cfg.Lottery.AddressBook,
			)
			fmt.Fprintf(cmd.OutOrStdout(), "Lottery deployed at %s by %s (tx %s)\n",
				l.Address().Hex(), sender.Hex(), tx.Hash().Hex(),
			)

			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Deployer and manager account (default: first local account)")

	return cmd
}
