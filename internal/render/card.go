package render

import (
	"strconv"
	"strings"

	"github.com/appetiteclub/cocina/internal/feed"
	"github.com/appetiteclub/cocina/internal/kitchen"
	"github.com/google/uuid"
)

const (
	InvoicePlaceholder  = "Sin número"
	TimePlaceholder     = "--:--:--"
	CustomerPlaceholder = "Sin nombre"
)

// Card is the view model of one order on the board.
type Card struct {
	ID           string
	Category     kitchen.Category
	Invoice      string
	Time         string
	Customer     string
	Table        string
	Products     []ProductLine
	Observations string
}

// Badge is the label shown on top of the card.
func (c Card) Badge() string {
	return c.Category.Label()
}

// Class is the CSS modifier for the card's category, empty for other.
func (c Card) Class() string {
	if c.Category == kitchen.Other {
		return ""
	}
	return c.Category.Key()
}

func (c Card) HasProducts() bool {
	return len(c.Products) > 0
}

// NewCard builds the card of one order. id must be unique within a render pass.
func NewCard(o feed.Order, id string) Card {
	return Card{
		ID:           id,
		Category:     kitchen.Classify(o.DeliveryType),
		Invoice:      orPlaceholder(o.InvoiceNumber, InvoicePlaceholder),
		Time:         orPlaceholder(o.OrderTime, TimePlaceholder),
		Customer:     orPlaceholder(o.CustomerName, CustomerPlaceholder),
		Table:        o.TableLabel,
		Products:     ParseProducts(o.Products),
		Observations: o.Observations,
	}
}

// BuildCards builds one card per order keeping their order. Card ids are
// unique within the returned slice, also for repeated or absent invoices,
// and the same orders always get the same ids.
func BuildCards(orders []feed.Order) []Card {
	cards := make([]Card, 0, len(orders))
	seen := make(map[string]struct{}, len(orders))

	for _, o := range orders {
		occurrence := 0
		id := CardID(o, occurrence)
		for {
			if _, dup := seen[id]; !dup {
				break
			}
			occurrence++
			id = CardID(o, occurrence)
		}
		seen[id] = struct{}{}
		cards = append(cards, NewCard(o, id))
	}

	return cards
}

// CardID returns pedido-<invoice>-<suffix>. Without an invoice the order's
// date and time digits are used instead. The suffix is derived from the
// order content and occurrence, which tells apart identical orders.
// Characters that cannot appear in a URL path segment are replaced.
func CardID(o feed.Order, occurrence int) string {
	base := sanitizeID(o.InvoiceNumber)
	if base == "" {
		base = digits(o.OrderDate + o.OrderTime)
	}
	if base == "" {
		base = "0"
	}

	key := strings.Join([]string{
		o.InvoiceNumber, o.CustomerName, o.TableLabel, o.DeliveryType,
		o.Products, o.Observations, o.OrderTime, o.OrderDate,
		strconv.Itoa(occurrence),
	}, "\x1f")
	suffix := strings.ReplaceAll(uuid.NewSHA1(cardNamespace, []byte(key)).String(), "-", "")[:9]
	return "pedido-" + base + "-" + suffix
}

var cardNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:cocina:card"))

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func sanitizeID(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

func orPlaceholder(value, placeholder string) string {
	if value == "" {
		return placeholder
	}
	return value
}
