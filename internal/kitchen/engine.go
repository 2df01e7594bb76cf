package kitchen

import (
	"strings"

	"github.com/appetiteclub/cocina/internal/feed"
)

// Counts is the per-category tally of the orders on display.
type Counts struct {
	HomeDelivery int
	Table        int
	Pickup       int
	Total        int
}

// Result is what the display shows for one (date, categories) selection.
type Result struct {
	// Date is the selected date in DD/MM/YYYY form.
	Date string
	// NoDate is set when no usable date was selected; nothing is shown.
	NoDate bool
	// NoCategory is set when every category is unchecked. It is not the same
	// as a selection that matched zero orders.
	NoCategory bool
	// Orders passing both filters, most recently fetched first.
	Orders []feed.Order
	Counts Counts
}

// Empty reports whether categories were selected but nothing matched.
func (r Result) Empty() bool {
	return !r.NoDate && !r.NoCategory && len(r.Orders) == 0
}

// Apply filters orders by the selected date (YYYY-MM-DD) and the active
// categories and tallies them. It has no side effects.
func Apply(orders []feed.Order, selectedDate string, active []Category) Result {
	date, ok := DisplayDate(selectedDate)
	if !ok {
		return Result{NoDate: true}
	}
	if len(active) == 0 {
		return Result{Date: date, NoCategory: true}
	}

	res := Result{Date: date, Orders: []feed.Order{}}
	for i := len(orders) - 1; i >= 0; i-- {
		o := orders[i]
		if o.OrderDate != date || !matchesAny(o.DeliveryType, active) {
			continue
		}
		res.Orders = append(res.Orders, o)

		switch Classify(o.DeliveryType) {
		case HomeDelivery:
			res.Counts.HomeDelivery++
		case Table:
			res.Counts.Table++
		case Pickup:
			res.Counts.Pickup++
		}
	}
	res.Counts.Total = len(res.Orders)

	return res
}

func matchesAny(deliveryType string, active []Category) bool {
	for _, c := range active {
		if c.Matches(deliveryType) {
			return true
		}
	}
	return false
}

// DisplayDate converts a date picker value (YYYY-MM-DD) to DD/MM/YYYY.
func DisplayDate(pickerValue string) (string, bool) {
	parts := strings.Split(strings.TrimSpace(pickerValue), "-")
	if len(parts) != 3 || len(parts[0]) != 4 || len(parts[1]) != 2 || len(parts[2]) != 2 {
		return "", false
	}
	return parts[2] + "/" + parts[1] + "/" + parts[0], true
}
