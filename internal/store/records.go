package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"ecommerce-datagen/internal/models"
)

func jsonText(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteCategories inserts categories, subcategories as JSON text
func (s *Store) WriteCategories(ctx context.Context, categories []models.Category) error {
	query := `INSERT INTO categories (category_id, name, subcategories)
		VALUES (` + placeholders(3) + `)
		ON CONFLICT (category_id) DO NOTHING`

	return s.insertRows(ctx, "categories", query, len(categories), func(i int) ([]interface{}, error) {
		c := categories[i]
		subs, err := jsonText(c.Subcategories)
		if err != nil {
			return nil, err
		}
		return []interface{}{c.ID, c.Name, subs}, nil
	})
}

// WriteProducts upserts products so a rerun refreshes price and stock
func (s *Store) WriteProducts(ctx context.Context, products []models.Product) error {
	query := `INSERT INTO products (product_id, name, category_id, subcategory_id, base_price,
			current_stock, is_active, price_history, creation_date)
		VALUES (` + placeholders(9) + `)
		ON CONFLICT (product_id) DO UPDATE SET
			base_price = excluded.base_price,
			current_stock = excluded.current_stock,
			is_active = excluded.is_active,
			price_history = excluded.price_history`

	return s.insertRows(ctx, "products", query, len(products), func(i int) ([]interface{}, error) {
		p := products[i]
		history, err := jsonText(p.PriceHistory)
		if err != nil {
			return nil, err
		}
		return []interface{}{p.ID, p.Name, p.CategoryID, p.SubcategoryID, p.Price,
			p.Stock, p.Active, history, p.CreatedAt}, nil
	})
}

// WriteUsers inserts users
func (s *Store) WriteUsers(ctx context.Context, users []models.User) error {
	query := `INSERT INTO users (user_id, geo_data, registration_date, last_active)
		VALUES (` + placeholders(4) + `)
		ON CONFLICT (user_id) DO NOTHING`

	return s.insertRows(ctx, "users", query, len(users), func(i int) ([]interface{}, error) {
		u := users[i]
		geo, err := jsonText(u.Geo)
		if err != nil {
			return nil, err
		}
		return []interface{}{u.ID, geo, u.RegistrationDate, u.LastActive}, nil
	})
}

// WriteSessions inserts sessions with their timeline and cart as JSON text
func (s *Store) WriteSessions(ctx context.Context, sessions []*models.Session) error {
	query := `INSERT INTO sessions (session_id, user_id, start_time, end_time, duration_seconds,
			geo_data, device_profile, viewed_products, page_views, cart_contents, conversion_status, referrer)
		VALUES (` + placeholders(12) + `)
		ON CONFLICT (session_id) DO NOTHING`

	return s.insertRows(ctx, "sessions", query, len(sessions), func(i int) ([]interface{}, error) {
		sess := sessions[i]
		texts := make([]string, 0, 5)
		for _, v := range []interface{}{sess.Geo, sess.Device, sess.ViewedProducts, sess.PageViews, sess.Cart} {
			t, err := jsonText(v)
			if err != nil {
				return nil, err
			}
			texts = append(texts, t)
		}
		return []interface{}{sess.ID, sess.UserID, sess.StartTime, sess.EndTime, sess.DurationSeconds,
			texts[0], texts[1], texts[2], texts[3], texts[4], sess.ConversionStatus, sess.Referrer}, nil
	})
}

// WriteTransactions inserts transactions with their line items as JSON text
func (s *Store) WriteTransactions(ctx context.Context, transactions []*models.Transaction) error {
	query := `INSERT INTO transactions (transaction_id, user_id, session_id, transaction_time, items,
			subtotal, discount, total, payment_method, status)
		VALUES (` + placeholders(10) + `)
		ON CONFLICT (transaction_id) DO NOTHING`

	return s.insertRows(ctx, "transactions", query, len(transactions), func(i int) ([]interface{}, error) {
		t := transactions[i]
		items, err := jsonText(t.Items)
		if err != nil {
			return nil, err
		}
		var sessionID sql.NullString
		if t.SessionID != nil {
			sessionID = sql.NullString{String: *t.SessionID, Valid: true}
		}
		return []interface{}{t.ID, t.UserID, sessionID, t.Timestamp, items,
			t.Subtotal, t.Discount, t.Total, t.PaymentMethod, t.Status}, nil
	})
}

// ProductStock is the stored stock of one product
type ProductStock struct {
	ID     string `db:"product_id"`
	Stock  int    `db:"current_stock"`
	Active bool   `db:"is_active"`
}

// GetProductStock retrieves the stored stock of a product
func (s *Store) GetProductStock(ctx context.Context, id string) (*ProductStock, error) {
	var p ProductStock
	err := s.db.GetContext(ctx, &p,
		s.db.Rebind("SELECT product_id, current_stock, is_active FROM products WHERE product_id = ?"), id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// VerifyStock reads back the stored stock of every product and fails on the
// first one that differs from products
func (s *Store) VerifyStock(ctx context.Context, products []models.Product) error {
	for _, want := range products {
		got, err := s.GetProductStock(ctx, want.ID)
		if err != nil {
			return fmt.Errorf("failed to read back stock: %w", err)
		}
		if got.Stock != want.Stock || got.Active != want.Active {
			return fmt.Errorf("stored product %s has stock %d (active %t), want %d (active %t)",
				want.ID, got.Stock, got.Active, want.Stock, want.Active)
		}
	}
	return nil
}
