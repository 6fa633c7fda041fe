package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"storefront/internal/app"
	"storefront/internal/domain"
)

func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and change the session cart",
	}
	cmd.AddCommand(newCartShowCommand(rootOpts))
	cmd.AddCommand(newCartAddCommand(rootOpts))
	cmd.AddCommand(newCartSetCommand(rootOpts))
	cmd.AddCommand(newCartRemoveCommand(rootOpts))
	cmd.AddCommand(newCartClearCommand(rootOpts))
	return cmd
}

func newCartShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.session(cmd, func(ctx context.Context, a *app.App, out *Output) error {
				return execute(ctx, a, out, "cart", a.Cart.Load, printCart)
			})
		},
	}
}

func newCartAddCommand(rootOpts *RootOptions) *cobra.Command {
	var quantity int
	cmd := &cobra.Command{
		Use:     "add <product-id>",
		Short:   "Add a product to the cart",
		Example: "  shopctl cart add 3 --quantity 2",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return rootOpts.session(cmd, func(ctx context.Context, a *app.App, out *Output) error {
				return execute(ctx, a, out, "cart add", func(ctx context.Context) (*domain.Cart, error) {
					return a.Cart.AddLine(ctx, productID, quantity)
				}, printCart)
			})
		},
	}
	cmd.Flags().IntVarP(&quantity, "quantity", "n", 1, "how many to add")
	return cmd
}

func newCartSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "set <product-id> <quantity>",
		Short:   "Set the quantity of a cart line; 0 removes it",
		Example: "  shopctl cart set 3 5",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseID(args[0])
			if err != nil {
				return err
			}
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid quantity %q", args[1]), err)
			}
			return rootOpts.session(cmd, func(ctx context.Context, a *app.App, out *Output) error {
				return execute(ctx, a, out, "cart update", func(ctx context.Context) (*domain.Cart, error) {
					return a.Cart.SetQuantity(ctx, productID, quantity)
				}, printCart)
			})
		},
	}
}

func newCartRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a product from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return rootOpts.session(cmd, func(ctx context.Context, a *app.App, out *Output) error {
				return execute(ctx, a, out, "cart remove", func(ctx context.Context) (*domain.Cart, error) {
					return a.Cart.RemoveLine(ctx, productID)
				}, printCart)
			})
		},
	}
}

func newCartClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.session(cmd, func(ctx context.Context, a *app.App, out *Output) error {
				return execute(ctx, a, out, "cart clear", func(ctx context.Context) (*domain.Cart, error) {
					return nil, a.Cart.Clear(ctx)
				}, printCart)
			})
		},
	}
}

func parseID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, WrapExitError(ExitCommandError, fmt.Sprintf("invalid product id %q", raw), err)
	}
	return id, nil
}

func printCart(w io.Writer, c *domain.Cart) {
	if c == nil {
		fmt.Fprintln(w, "Cart is empty")
		return
	}
	for _, l := range c.Lines {
		fmt.Fprintf(w, "%5d  %-40s %3d x %8.2f = %9.2f\n", l.ProductID, l.Title, l.Quantity, l.UnitPrice, l.LineTotal)
	}
	fmt.Fprintf(w, "%d products, %d items\n", c.LineCount, c.TotalQuantity)
	fmt.Fprintf(w, "subtotal %.2f  discounted %.2f\n", c.Subtotal, c.DiscountedTotal)
}
