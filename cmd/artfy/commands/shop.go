package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/boddenberg/artfy-client-go/internal/domain"
	"github.com/boddenberg/artfy-client-go/internal/format"
	"github.com/boddenberg/artfy-client-go/internal/service"
)

// ============================================================
// Catalog
// ============================================================

// RunProducts lists the catalog, optionally narrowed to one category.
func RunProducts(ctx context.Context, catalog *service.Catalog, ioTuple IOTuple, category, output string) error {
	products, err := catalog.ListProducts(ctx, category)
	if err != nil {
		return err
	}
	if output == OutputJSON {
		return printJSON(ioTuple.Writer, products)
	}

	if len(products) == 0 {
		fmt.Fprintln(ioTuple.Writer, "Nenhum produto encontrado.")
		return nil
	}
	tw := tabwriter.NewWriter(ioTuple.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNOME\tCATEGORIA\tPREÇO")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Category, format.Money(p.Price))
	}
	return tw.Flush()
}

// RunProduct prints one product's details.
func RunProduct(ctx context.Context, catalog *service.Catalog, ioTuple IOTuple, productID domain.ID, output string) error {
	p, err := catalog.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if output == OutputJSON {
		return printJSON(ioTuple.Writer, p)
	}

	fmt.Fprintf(ioTuple.Writer, "%s (%s)\n", p.Name, p.Category)
	fmt.Fprintln(ioTuple.Writer, format.Money(p.Price))
	if p.Description != "" {
		fmt.Fprintln(ioTuple.Writer, p.Description)
	}
	return nil
}

// RunBuyNow adds one unit and shows the refreshed cart.
func RunBuyNow(ctx context.Context, catalog *service.Catalog, cart *service.CartSyncEngine, ioTuple IOTuple, productID domain.ID, output string) error {
	if _, err := catalog.BuyNow(ctx, productID); err != nil {
		return err
	}
	return printCart(ioTuple, cart.View(), output)
}

// ============================================================
// Cart & orders
// ============================================================

// RunCart fetches and prints the active cart.
func RunCart(ctx context.Context, cart *service.CartSyncEngine, ioTuple IOTuple, output string) error {
	if _, err := cart.Fetch(ctx); err != nil {
		return err
	}
	return printCart(ioTuple, cart.View(), output)
}

// RunAdd adds quantity units of a product to the cart.
func RunAdd(ctx context.Context, cart *service.CartSyncEngine, ioTuple IOTuple, productID domain.ID, quantity int) error {
	if err := cart.Add(ctx, productID, quantity); err != nil {
		return err
	}
	fmt.Fprintln(ioTuple.Writer, "Item adicionado ao carrinho.")
	return nil
}

// RunRemove deletes a product from the cart and prints the re-fetched cart.
func RunRemove(ctx context.Context, cart *service.CartSyncEngine, ioTuple IOTuple, productID domain.ID, output string) error {
	if _, err := cart.Remove(ctx, productID); err != nil {
		return err
	}
	return printCart(ioTuple, cart.View(), output)
}

// RunCheckout completes the active cart.
func RunCheckout(ctx context.Context, cart *service.CartSyncEngine, ioTuple IOTuple) error {
	if err := cart.Checkout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(ioTuple.Writer, "Compra realizada com sucesso.")
	return nil
}

// RunOrders prints the purchase history.
func RunOrders(ctx context.Context, orders *service.OrderAggregator, ioTuple IOTuple, output string) error {
	list, err := orders.ListOrders(ctx)
	if err != nil {
		return err
	}
	if output == OutputJSON {
		return printJSON(ioTuple.Writer, list)
	}

	if len(list) == 0 {
		fmt.Fprintln(ioTuple.Writer, "Você ainda não fez nenhum pedido.")
		return nil
	}
	tw := tabwriter.NewWriter(ioTuple.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PEDIDO\tPRODUTO\tQTD\tTOTAL\tDATA\tSTATUS")
	for _, o := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			o.ID, o.ProductName, o.UnitCount, format.Money(o.LineTotal), o.CompletedDate(), o.Status)
	}
	return tw.Flush()
}

func printCart(ioTuple IOTuple, view service.CartView, output string) error {
	if output == OutputJSON {
		return printJSON(ioTuple.Writer, view)
	}

	if view.Cart == nil || view.Cart.Empty() {
		fmt.Fprintln(ioTuple.Writer, "Seu carrinho está vazio.")
		return nil
	}
	tw := tabwriter.NewWriter(ioTuple.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUTO\tQTD\tPREÇO\tSUBTOTAL")
	for _, item := range view.Cart.Items {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
			item.Product.Name, item.Quantity, format.Money(item.Price), format.Money(item.LineTotal()))
	}
	fmt.Fprintf(tw, "Total\t\t\t%s\n", view.FormattedTotal())
	return tw.Flush()
}
