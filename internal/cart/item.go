package cart

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Options is the set of selected product options (size, colour, ...) of a line.
type Options map[string]string

// key renders the options in a stable order. Keys and values are escaped so distinct option
// sets never render the same.
func (o Options) key() string {
	if len(o) == 0 {
		return ""
	}
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = url.QueryEscape(k) + "=" + url.QueryEscape(o[k])
	}
	return strings.Join(parts, ";")
}

func (o Options) clone() Options {
	if len(o) == 0 {
		return nil
	}
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// LineID derives the identity of a cart line from its product and selected options.
// Two additions with the same product and option set always resolve to the same line.
func LineID(productID string, options Options) string {
	id := url.QueryEscape(productID)
	if k := options.key(); k != "" {
		return id + "|" + k
	}
	return id
}

// LineItem is one distinct (product, options) entry in the cart.
type LineItem struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image,omitempty"`
	MaxStock  int             `json:"maxStock"`
	Options   Options         `json:"selectedOptions,omitempty"`
	AddedAt   time.Time       `json:"addedAt"`
}

// LineTotal returns price times quantity.
func (i LineItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ItemInput is the data needed to add a product to the cart. Price and MaxStock are
// snapshots taken from the catalogue when the item is added and are not refreshed later.
type ItemInput struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Quantity  int
	Image     string
	MaxStock  int
	Options   Options
}

// State is the cart as seen by callers. Totals are derived from Items and never set directly.
type State struct {
	Items       []LineItem      `json:"items"`
	TotalItems  int             `json:"totalItems"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

// IsEmpty reports whether the cart has no lines.
func (s State) IsEmpty() bool {
	return len(s.Items) == 0
}

// Find returns the index of the line with the given id, or -1.
func (s State) Find(id string) int {
	for i, item := range s.Items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// clone returns a deep copy so callers never share the store's backing arrays.
func (s State) clone() State {
	out := s
	if s.Items != nil {
		out.Items = make([]LineItem, len(s.Items))
		for i, item := range s.Items {
			item.Options = item.Options.clone()
			out.Items[i] = item
		}
	}
	return out
}

// derive builds a State whose totals are computed from items.
func derive(items []LineItem, updated time.Time) State {
	if items == nil {
		items = []LineItem{}
	}
	total := decimal.Zero
	count := 0
	for _, item := range items {
		count += item.Quantity
		total = total.Add(item.LineTotal())
	}
	return State{
		Items:       items,
		TotalItems:  count,
		TotalPrice:  total,
		LastUpdated: updated,
	}
}

// Limits bounds the size of the cart.
type Limits struct {
	// MaxItems is the maximum number of distinct lines.
	MaxItems int
	// MaxQuantityPerItem is the global ceiling on a single line's quantity.
	MaxQuantityPerItem int
}

// DefaultLimits returns the default cart limits.
func DefaultLimits() Limits {
	return Limits{
		MaxItems:           50,
		MaxQuantityPerItem: 10,
	}
}
