package render

import (
	"regexp"
	"strings"
)

// ProductPlaceholder is shown when an order carries no products.
const ProductPlaceholder = "Sin productos"

var quantityMarker = regexp.MustCompile(`(?i)x\d+`)

// ProductLine is one line of an order's products.
type ProductLine struct {
	Quantity string
	Detail   string
}

// ParseProducts splits the newline-delimited products text. The first
// x<digits> marker of a line becomes its quantity and is removed from the
// detail. Lines without a marker have an empty quantity.
func ParseProducts(text string) []ProductLine {
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	products := make([]ProductLine, 0, len(lines))
	for _, line := range lines {
		products = append(products, parseProductLine(line))
	}
	return products
}

func parseProductLine(line string) ProductLine {
	loc := quantityMarker.FindStringIndex(line)
	if loc == nil {
		return ProductLine{Detail: strings.TrimSpace(line)}
	}
	return ProductLine{
		Quantity: line[loc[0]+1 : loc[1]],
		Detail:   strings.TrimSpace(line[:loc[0]] + line[loc[1]:]),
	}
}
