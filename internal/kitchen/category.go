package kitchen

import "strings"

// Category is the delivery class of an order.
type Category string

const (
	HomeDelivery Category = "domicilio"
	Table        Category = "mesa"
	Pickup       Category = "recoger"
	Other        Category = "otro"
)

// Categories lists the filterable categories in classification priority.
var Categories = []Category{HomeDelivery, Table, Pickup}

// Key is the keyword matched against delivery types and the persistence key.
func (c Category) Key() string {
	return string(c)
}

func (c Category) Label() string {
	switch c {
	case HomeDelivery:
		return "Domicilio"
	case Table:
		return "Mesa"
	case Pickup:
		return "Recoger"
	default:
		return "📦 Otro"
	}
}

// ParseCategory returns the filterable category for key.
func ParseCategory(key string) (Category, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, c := range Categories {
		if c.Key() == key {
			return c, true
		}
	}
	return Other, false
}

// Classify returns the single category of a delivery type. The text is
// matched case-insensitively by substring, first match wins in the order
// domicilio, mesa, recoger.
func Classify(deliveryType string) Category {
	t := strings.ToLower(deliveryType)
	for _, c := range Categories {
		if strings.Contains(t, c.Key()) {
			return c
		}
	}
	return Other
}

// Matches reports whether the delivery type mentions c, regardless of
// which category it classifies as.
func (c Category) Matches(deliveryType string) bool {
	if c == Other {
		return false
	}
	return strings.Contains(strings.ToLower(deliveryType), c.Key())
}
