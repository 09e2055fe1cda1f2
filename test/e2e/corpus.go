// Package e2e provides end-to-end tests over a generated menu catalog.
package e2e

import (
	"fmt"
	"strings"

	"github.com/hyperjump/osusume/internal/models"
)

// family is a group of menu items that share a signature phrase and category.
type family struct {
	category  string
	signature string
	variants  []string
}

var families = []family{
	{"ramen", "ramen noodles simmered broth", []string{"shoyu", "miso", "tonkotsu", "shio"}},
	{"sushi", "sushi vinegared rice nori", []string{"salmon", "tuna", "eel", "shrimp"}},
	{"tea", "whisked green tea ceremony", []string{"matcha", "hojicha", "genmaicha", "sencha"}},
	{"coffee", "espresso roasted arabica beans", []string{"latte", "cortado", "americano", "mocha"}},
	{"wagashi", "sweet azuki bean confection", []string{"dorayaki", "daifuku", "taiyaki", "monaka"}},
	{"donburi", "donburi bowl hearty savory topping", []string{"katsudon", "oyakodon", "gyudon", "tendon"}},
	{"curry", "japanese curry roux stew", []string{"beef", "chicken", "vegetable", "katsu"}},
	{"tempura", "tempura crisp batter fried", []string{"prawn", "pumpkin", "shiso", "kakiage"}},
}

// Corpus holds a catalog and the expected neighbours of each item.
type Corpus struct {
	Items      []models.Item
	FamilyOf   map[int]string
	TotalItems int
}

// BuildCorpus returns a catalog of families × variants items. Items in the same
// family share every description word except the variant.
func BuildCorpus() *Corpus {
	c := &Corpus{FamilyOf: make(map[int]string)}
	id := 1
	for _, f := range families {
		for _, v := range f.variants {
			price := 300 + 20*id
			c.Items = append(c.Items, models.Item{
				ID:       id,
				Name:     fmt.Sprintf("%s %s", strings.ToUpper(v[:1])+v[1:], f.category),
				Desc:     f.signature + " " + v,
				Category: f.category,
				Tags:     []string{f.category, v},
				Price:    &price,
			})
			c.FamilyOf[id] = f.category
			id++
		}
	}
	c.TotalItems = len(c.Items)
	return c
}

// Family returns the ids of every item in category.
func (c *Corpus) Family(category string) []int {
	var ids []int
	for _, it := range c.Items {
		if it.Category == category {
			ids = append(ids, it.ID)
		}
	}
	return ids
}

// Categories returns the family categories in catalog order.
func (c *Corpus) Categories() []string {
	out := make([]string, 0, len(families))
	for _, f := range families {
		out = append(out, f.category)
	}
	return out
}
