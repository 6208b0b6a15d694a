// Package pageflow models page-to-page navigation as a first-order Markov
// chain and picks the product or category a page shows.
package pageflow

import "math/rand"

// PageType is a state of the navigation chain
type PageType string

const (
	// Start is the pseudo-state before the first page of a session
	Start           PageType = "start"
	Home            PageType = "home"
	Search          PageType = "search"
	CategoryListing PageType = "category_listing"
	ProductDetail   PageType = "product_detail"
	Cart            PageType = "cart"
	Checkout        PageType = "checkout"
	Confirmation    PageType = "confirmation"
)

// Transition is one weighted successor
type Transition struct {
	Next   PageType
	Weight float64
}

var entryPages = []PageType{Home, Search, CategoryListing}

var transitions = map[PageType][]Transition{
	Home: {
		{CategoryListing, 0.5}, {Search, 0.3}, {ProductDetail, 0.2},
	},
	CategoryListing: {
		{ProductDetail, 0.6}, {Search, 0.2}, {CategoryListing, 0.1}, {Home, 0.1},
	},
	Search: {
		{ProductDetail, 0.6}, {Search, 0.2}, {CategoryListing, 0.1}, {Home, 0.1},
	},
	ProductDetail: {
		{ProductDetail, 0.3}, {Cart, 0.4}, {Search, 0.15}, {Home, 0.15},
	},
	Cart: {
		{Checkout, 0.6}, {ProductDetail, 0.2}, {Home, 0.2},
	},
	Checkout: {
		{Confirmation, 0.7}, {Cart, 0.1}, {Home, 0.2},
	},
	Confirmation: {
		{Home, 0.7}, {ProductDetail, 0.3},
	},
}

var fallback = []Transition{{Home, 1.0}}

// Successors returns the weighted successors of prev. Unknown states lead
// to home.
func Successors(prev PageType) []Transition {
	if ts, ok := transitions[prev]; ok {
		return ts
	}
	return fallback
}

// Initial draws the first page of a session uniformly from the entry pages
func Initial(rng *rand.Rand) PageType {
	return entryPages[rng.Intn(len(entryPages))]
}

// Next draws the page following prev
func Next(rng *rand.Rand, prev PageType) PageType {
	if prev == Start {
		return Initial(rng)
	}

	ts := Successors(prev)
	var total float64
	for _, t := range ts {
		total += t.Weight
	}

	r := rng.Float64() * total
	var cum float64
	for _, t := range ts {
		cum += t.Weight
		if r < cum {
			return t.Next
		}
	}
	return ts[len(ts)-1].Next
}

// IsCheckoutStage reports whether page is part of the checkout funnel
func IsCheckoutStage(page PageType) bool {
	return page == Checkout || page == Confirmation
}
