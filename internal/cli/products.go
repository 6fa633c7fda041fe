package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"storefront/internal/app"
	"storefront/internal/domain"
	productsvc "storefront/internal/service/product"
)

// ProductsOptions holds flags for the products command.
type ProductsOptions struct {
	*RootOptions
	Skip  int
	Limit int
	Query string
}

func NewProductsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProductsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "products",
		Short: "List or search the catalog",
		Example: `  shopctl products
  shopctl products --query phone --limit 5
  shopctl products --skip 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			page := productsvc.Page{Skip: opts.Skip, Limit: opts.Limit, Query: opts.Query}
			return opts.session(cmd, func(ctx context.Context, a *app.App, out *Output) error {
				return execute(ctx, a, out, "products", func(ctx context.Context) (*domain.ProductPage, error) {
					return a.Catalog.List(ctx, page)
				}, printProductPage)
			})
		},
	}

	cmd.Flags().IntVar(&opts.Skip, "skip", 0, "number of products to skip")
	cmd.Flags().IntVar(&opts.Limit, "limit", productsvc.DefaultLimit, "page size")
	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "search text")

	return cmd
}

func printProductPage(w io.Writer, p *domain.ProductPage) {
	for _, prod := range p.Products {
		fmt.Fprintf(w, "%5d  %-40s %8.2f  -%.0f%%\n", prod.ID, prod.Title, prod.Price, prod.DiscountPercentage)
	}
	fmt.Fprintf(w, "showing %d of %d", len(p.Products), p.Total)
	if p.HasMore {
		fmt.Fprintf(w, " (next: --skip %d)", p.NextSkip)
	}
	fmt.Fprintln(w)
}
