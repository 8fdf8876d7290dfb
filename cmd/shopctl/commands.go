package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/model"
	"storefront/internal/pricing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// storefrontAPI is the part of the API client the commands use.
type storefrontAPI interface {
	checkout.Submitter
	ListProducts(ctx context.Context, limit, offset int) ([]model.Product, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListDeliveryMethods(ctx context.Context) ([]model.DeliveryMethod, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*model.OrderDetail, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.StatusChange, error)
}

type app struct {
	api      storefrontAPI
	cart     *cart.Store
	rules    pricing.Rules
	validate *validator.Validate
	out      io.Writer
	logger   zerolog.Logger
}

const usage = `usage: shopctl <command> [arguments]

commands:
  products [-limit n] [-offset n]      list the catalogue
  product <id>                         show one product
  add <id> [-qty n] [-opt key=value]   add a product to the cart
  remove <line-id>                     remove a cart line
  qty <line-id> <n>                    change a line's quantity
  show                                 show the cart
  clear                                empty the cart
  delivery                             list delivery methods
  checkout [flags]                     place an order for the cart (see checkout -h)
  order <id>                           show an order
  status <id> <status>                 change an order's status (staff)
`

var errUsage = errors.New("invalid usage")

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "products":
		return a.products(ctx, rest)
	case "product":
		return a.product(ctx, rest)
	case "add":
		return a.add(ctx, rest)
	case "remove":
		return a.remove(rest)
	case "qty":
		return a.quantity(rest)
	case "show":
		return a.show()
	case "clear":
		return a.clear()
	case "delivery":
		return a.delivery(ctx)
	case "checkout":
		return a.checkout(ctx, rest)
	case "order":
		return a.order(ctx, rest)
	case "status":
		return a.status(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (a *app) products(ctx context.Context, args []string) error {
	fs := a.flagSet("products")
	limit := fs.Int("limit", 20, "page size")
	offset := fs.Int("offset", 0, "page offset")
	if _, err := parseInterleaved(fs, args); err != nil {
		return err
	}

	products, err := a.api.ListProducts(ctx, *limit, *offset)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSTOCK\tCATEGORY")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", p.ID, p.Name, p.Price.StringFixed(2), p.Stock, p.Category)
	}
	return tw.Flush()
}

func (a *app) product(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: product <id>", errUsage)
	}

	p, err := a.api.GetProduct(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s  %s\nprice: %s\nstock: %d\ncategory: %s\n", p.ID, p.Name, p.Price.StringFixed(2), p.Stock, p.Category)
	if p.ImageURL != "" {
		fmt.Fprintf(a.out, "image: %s\n", p.ImageURL)
	}
	return nil
}

// optionsFlag collects repeated -opt key=value flags.
type optionsFlag cart.Options

func (o optionsFlag) String() string {
	parts := make([]string, 0, len(o))
	for k, v := range o {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (o optionsFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	k = strings.TrimSpace(k)
	if !ok || k == "" {
		return fmt.Errorf("option %q must be key=value", s)
	}
	o[k] = strings.TrimSpace(v)
	return nil
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := a.flagSet("add")
	qty := fs.Int("qty", 1, "quantity to add")
	opts := optionsFlag{}
	fs.Var(opts, "opt", "selected option as key=value (repeatable)")
	pos, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return fmt.Errorf("%w: add <id> [-qty n] [-opt key=value]", errUsage)
	}

	// Name, price and stock are snapshotted from the live catalogue.
	p, err := a.api.GetProduct(ctx, pos[0])
	if err != nil {
		return err
	}

	var selected cart.Options
	if len(opts) > 0 {
		selected = cart.Options(opts)
	}
	line, err := a.cart.AddItem(cart.ItemInput{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  *qty,
		Image:     p.ImageURL,
		MaxStock:  p.Stock,
		Options:   selected,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "added %d x %s (line %s, now %d)\n", *qty, line.Name, line.ID, line.Quantity)
	return nil
}

func (a *app) remove(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: remove <line-id>", errUsage)
	}
	if err := a.cart.RemoveItem(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "removed %s\n", args[0])
	return nil
}

func (a *app) quantity(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: qty <line-id> <n>", errUsage)
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("%w: quantity %q is not a number", errUsage, args[1])
	}
	if err := a.cart.UpdateQuantity(args[0], n); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s quantity set to %d\n", args[0], n)
	return nil
}

func (a *app) show() error {
	state := a.cart.State()
	if state.IsEmpty() {
		fmt.Fprintln(a.out, "cart is empty")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tNAME\tOPTIONS\tPRICE\tQTY\tTOTAL")
	for _, item := range state.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			item.ID, item.Name, optionsFlag(item.Options).String(),
			item.Price.StringFixed(2), item.Quantity, item.LineTotal().StringFixed(2))
	}
	fmt.Fprintf(tw, "\t\t\t\t%d\t%s\n", state.TotalItems, state.TotalPrice.StringFixed(2))
	return tw.Flush()
}

func (a *app) clear() error {
	if err := a.cart.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "cart cleared")
	return nil
}

func (a *app) delivery(ctx context.Context) error {
	methods, err := a.api.ListDeliveryMethods(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tDAYS")
	for _, m := range methods {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d-%d\n", m.ID, m.Name, m.Price.StringFixed(2), m.MinDays, m.MaxDays)
	}
	return tw.Flush()
}

func (a *app) checkout(ctx context.Context, args []string) error {
	fs := a.flagSet("checkout")
	var ship checkout.ShippingForm
	fs.StringVar(&ship.FullName, "name", "", "recipient full name")
	fs.StringVar(&ship.Phone, "phone", "", "contact phone")
	fs.StringVar(&ship.Email, "email", "", "contact email")
	fs.StringVar(&ship.AddressLine1, "address1", "", "address line 1")
	fs.StringVar(&ship.AddressLine2, "address2", "", "address line 2")
	fs.StringVar(&ship.City, "city", "", "city")
	fs.StringVar(&ship.State, "state", "", "state or region")
	fs.StringVar(&ship.PostalCode, "postal", "", "postal code")
	fs.StringVar(&ship.Country, "country", "", "country")
	deliveryID := fs.String("delivery", "standard", "delivery method id")
	payment := fs.String("payment", string(model.PaymentMethodCard), "payment method: card, cod or bank_transfer")
	var card checkout.CardDetails
	fs.StringVar(&card.Holder, "card-holder", "", "card holder name")
	fs.StringVar(&card.Number, "card-number", "", "card number")
	fs.StringVar(&card.Expiry, "card-expiry", "", "card expiry as MM/YY")
	fs.StringVar(&card.CVV, "card-cvv", "", "card security code")
	notes := fs.String("notes", "", "order notes")
	customerEmail := fs.String("customer-email", "", "order contact email (defaults to -email)")
	dryRun := fs.Bool("dry-run", false, "validate and print totals without placing the order")
	if _, err := parseInterleaved(fs, args); err != nil {
		return err
	}

	method, err := a.deliveryMethod(ctx, *deliveryID)
	if err != nil {
		return err
	}

	coord := checkout.NewCoordinator(a.cart, a.api, a.rules, a.validate, a.logger)
	coord.SetShipping(ship)
	coord.SelectDelivery(method)
	coord.SelectPayment(model.PaymentMethod(*payment))
	if card != (checkout.CardDetails{}) {
		coord.SetCard(card)
	}
	coord.SetNotes(*notes)
	coord.SetCustomerEmail(*customerEmail)

	if err := coord.Validate(); err != nil {
		return err
	}
	a.printTotals(coord.Totals())

	if *dryRun {
		return nil
	}

	confirmation, err := coord.Submit(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "\norder %s placed (%s)\nstatus: %s\nestimated delivery: %s\n",
		confirmation.OrderNumber, confirmation.OrderID, confirmation.Status,
		confirmation.EstimatedDelivery.Format("Mon 2 Jan 2006"))
	return nil
}

func (a *app) deliveryMethod(ctx context.Context, id string) (model.DeliveryMethod, error) {
	methods, err := a.api.ListDeliveryMethods(ctx)
	if err != nil {
		return model.DeliveryMethod{}, err
	}
	for _, m := range methods {
		if m.ID == id {
			return m, nil
		}
	}
	return model.DeliveryMethod{}, model.ErrDeliveryMethodNotFound
}

func (a *app) printTotals(t pricing.Totals) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "subtotal\t%s\t\n", t.Subtotal.StringFixed(2))
	fmt.Fprintf(tw, "shipping\t%s\t\n", t.ShippingCost.StringFixed(2))
	fmt.Fprintf(tw, "tax\t%s\t\n", t.TaxAmount.StringFixed(2))
	if t.CODFee != nil {
		fmt.Fprintf(tw, "cod fee\t%s\t\n", t.CODFee.StringFixed(2))
	}
	fmt.Fprintf(tw, "total\t%s\t\n", t.Total.StringFixed(2))
	_ = tw.Flush()
}

func (a *app) order(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: order <id>", errUsage)
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("%w: invalid order id %q", errUsage, args[0])
	}

	o, err := a.api.GetOrder(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "order %s (%s)\nstatus: %s\nplaced: %s\ndelivery: %s, estimated %s\nship to: %s, %s, %s\n\n",
		o.OrderNumber, o.ID, o.Status, o.CreatedAt.Format("2006-01-02 15:04"),
		o.DeliveryMethod.Name, o.EstimatedDelivery.Format("Mon 2 Jan 2006"),
		o.ShippingAddress.FullName, o.ShippingAddress.City, o.ShippingAddress.Country)

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tNAME\tPRICE\tQTY\tTOTAL")
	for _, item := range o.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", item.ProductID, item.ProductName,
			item.UnitPrice.StringFixed(2), item.Quantity, item.LineTotal().StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(a.out)
	a.printTotals(pricing.Totals{
		Subtotal:     o.Subtotal,
		ShippingCost: o.ShippingCost,
		TaxAmount:    o.TaxAmount,
		CODFee:       o.CODFee,
		Total:        o.Total,
	})
	return nil
}

func (a *app) status(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: status <id> <status>", errUsage)
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("%w: invalid order id %q", errUsage, args[0])
	}
	to, err := model.ParseOrderStatus(args[1])
	if err != nil {
		return err
	}

	change, err := a.api.UpdateStatus(ctx, id, to)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "order %s: %s -> %s\n", model.OrderNumber(change.OrderID), change.From, change.To)
	return nil
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

// parseInterleaved parses flags that may appear before, between or after positional
// arguments and returns the positional arguments in order.
func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}
