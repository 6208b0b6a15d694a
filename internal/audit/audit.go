// Package audit verifies a generated dataset before it is written out.
// Violations are programming errors, so Check stops at the first one.
package audit

import (
	"errors"
	"fmt"

	"ecommerce-datagen/internal/models"
	"ecommerce-datagen/internal/money"
	"ecommerce-datagen/internal/pageflow"
)

// ErrInvariantViolation wraps every audit failure
var ErrInvariantViolation = errors.New("dataset invariant violated")

// Dataset is everything a run produced. Products carry their final stock.
type Dataset struct {
	Users        []models.User
	Products     []models.Product
	InitialStock map[string]int
	Sessions     []*models.Session
	Transactions []*models.Transaction
}

func violation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}

// Check runs every audit and returns the first violation found
func Check(d Dataset) error {
	checks := []func(Dataset) error{
		checkUsers,
		checkProducts,
		checkTransactions,
		checkStock,
		checkSessions,
		checkClassification,
	}
	for _, check := range checks {
		if err := check(d); err != nil {
			return err
		}
	}
	return nil
}

func checkUsers(d Dataset) error {
	seen := make(map[string]struct{}, len(d.Users))
	for _, u := range d.Users {
		if _, dup := seen[u.ID]; dup {
			return violation("duplicate user id %s", u.ID)
		}
		seen[u.ID] = struct{}{}
		if u.LastActive.Before(u.RegistrationDate) {
			return violation("user %s last active before registration", u.ID)
		}
	}
	return nil
}

func checkProducts(d Dataset) error {
	seen := make(map[string]struct{}, len(d.Products))
	for _, p := range d.Products {
		if _, dup := seen[p.ID]; dup {
			return violation("duplicate product id %s", p.ID)
		}
		seen[p.ID] = struct{}{}
		for i := 1; i < len(p.PriceHistory); i++ {
			if p.PriceHistory[i].Date.Before(p.PriceHistory[i-1].Date) {
				return violation("product %s price history out of order at entry %d", p.ID, i)
			}
		}
	}
	return nil
}

// checkTransactions verifies ids and that every total ties to its rounded
// line subtotals
func checkTransactions(d Dataset) error {
	seen := make(map[string]struct{}, len(d.Transactions))
	for _, txn := range d.Transactions {
		if _, dup := seen[txn.ID]; dup {
			return violation("duplicate transaction id %s", txn.ID)
		}
		seen[txn.ID] = struct{}{}

		if len(txn.Items) == 0 {
			return violation("transaction %s has no line items", txn.ID)
		}

		subtotals := make([]float64, len(txn.Items))
		for i, item := range txn.Items {
			if item.Quantity <= 0 {
				return violation("transaction %s line %s has quantity %d", txn.ID, item.ProductID, item.Quantity)
			}
			if want := money.Mul(item.UnitPrice, item.Quantity); item.Subtotal != want {
				return violation("transaction %s line %s subtotal %v, want %v", txn.ID, item.ProductID, item.Subtotal, want)
			}
			subtotals[i] = item.Subtotal
		}

		if want := money.Sum(subtotals...); txn.Subtotal != want {
			return violation("transaction %s subtotal %v, want %v", txn.ID, txn.Subtotal, want)
		}
		if txn.Discount < 0 {
			return violation("transaction %s has negative discount %v", txn.ID, txn.Discount)
		}
		if want := money.Sub(txn.Subtotal, txn.Discount); txn.Total != want {
			return violation("transaction %s total %v, want %v", txn.ID, txn.Total, want)
		}
	}
	return nil
}

// checkStock verifies no product was oversold and that final stock equals
// initial stock minus units sold
func checkStock(d Dataset) error {
	sold := make(map[string]int)
	for _, txn := range d.Transactions {
		for _, item := range txn.Items {
			if _, ok := d.InitialStock[item.ProductID]; !ok {
				return violation("transaction %s sells unknown product %s", txn.ID, item.ProductID)
			}
			sold[item.ProductID] += item.Quantity
		}
	}

	for _, p := range d.Products {
		initial, ok := d.InitialStock[p.ID]
		if !ok {
			return violation("product %s has no initial stock", p.ID)
		}
		if p.Stock < 0 {
			return violation("product %s has negative stock %d", p.ID, p.Stock)
		}
		if sold[p.ID] > initial {
			return violation("product %s oversold: %d units sold from stock %d", p.ID, sold[p.ID], initial)
		}
		if p.Stock != initial-sold[p.ID] {
			return violation("product %s final stock %d, want %d - %d", p.ID, p.Stock, initial, sold[p.ID])
		}
	}
	return nil
}

// checkSessions verifies ids, timelines and carts
func checkSessions(d Dataset) error {
	seen := make(map[string]struct{}, len(d.Sessions))
	for _, s := range d.Sessions {
		if _, dup := seen[s.ID]; dup {
			return violation("duplicate session id %s", s.ID)
		}
		seen[s.ID] = struct{}{}

		if err := checkTimeline(s); err != nil {
			return err
		}
		if err := checkCart(s); err != nil {
			return err
		}
	}
	return nil
}

func checkTimeline(s *models.Session) error {
	if s.EndTime.Before(s.StartTime) {
		return violation("session %s ends before it starts", s.ID)
	}
	if int(s.EndTime.Sub(s.StartTime).Seconds()) != s.DurationSeconds {
		return violation("session %s duration %ds does not match its bounds", s.ID, s.DurationSeconds)
	}

	total := 0
	prev := s.StartTime
	for i, pv := range s.PageViews {
		if pv.ViewDuration < 0 {
			return violation("session %s page view %d has negative duration", s.ID, i)
		}
		if pv.Timestamp.Before(prev) {
			return violation("session %s page view %d out of order", s.ID, i)
		}
		if pv.Timestamp.After(s.EndTime) {
			return violation("session %s page view %d after session end", s.ID, i)
		}
		total += pv.ViewDuration
		prev = pv.Timestamp
	}
	if total != s.DurationSeconds {
		return violation("session %s page views cover %ds of %ds", s.ID, total, s.DurationSeconds)
	}
	return nil
}

func checkCart(s *models.Session) error {
	viewed := make(map[string]struct{}, len(s.ViewedProducts))
	for _, id := range s.ViewedProducts {
		viewed[id] = struct{}{}
	}
	for _, id := range s.Cart.ProductIDs() {
		entry, _ := s.Cart.Get(id)
		if entry.Quantity > models.MaxCartUnits {
			return violation("session %s holds %d units of %s", s.ID, entry.Quantity, id)
		}
		if _, ok := viewed[id]; !ok {
			return violation("session %s carts %s without viewing it", s.ID, id)
		}
	}
	return nil
}

// checkClassification ties session status to carts, checkout pages and
// transactions: a converted session has exactly one transaction
func checkClassification(d Dataset) error {
	bySession := make(map[string]int)
	for _, txn := range d.Transactions {
		if txn.SessionID != nil {
			bySession[*txn.SessionID]++
		}
	}

	known := make(map[string]struct{}, len(d.Sessions))
	for _, s := range d.Sessions {
		known[s.ID] = struct{}{}
		switch s.ConversionStatus {
		case models.ConversionBrowsed:
			if !s.Cart.Empty() {
				return violation("browsed session %s has a cart", s.ID)
			}
		case models.ConversionAbandoned:
			if s.Cart.Empty() {
				return violation("abandoned session %s has an empty cart", s.ID)
			}
		case models.ConversionConverted:
			if s.Cart.Empty() {
				return violation("converted session %s has an empty cart", s.ID)
			}
			if !reachedCheckout(s) {
				return violation("converted session %s never reached checkout", s.ID)
			}
			if bySession[s.ID] != 1 {
				return violation("converted session %s has %d transactions", s.ID, bySession[s.ID])
			}
			continue
		default:
			return violation("session %s has unknown status %q", s.ID, s.ConversionStatus)
		}
		if bySession[s.ID] != 0 {
			return violation("%s session %s has a transaction", s.ConversionStatus, s.ID)
		}
	}

	for id := range bySession {
		if _, ok := known[id]; !ok {
			return violation("transaction references unknown session %s", id)
		}
	}
	return nil
}

func reachedCheckout(s *models.Session) bool {
	for _, pv := range s.PageViews {
		if pageflow.IsCheckoutStage(pageflow.PageType(pv.PageType)) {
			return true
		}
	}
	return false
}
