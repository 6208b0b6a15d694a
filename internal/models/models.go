package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Subcategory belongs to exactly one category
type Subcategory struct {
	ID           string  `db:"subcategory_id" json:"subcategory_id"`
	Name         string  `db:"name" json:"name"`
	ProfitMargin float64 `db:"profit_margin" json:"profit_margin"`
}

// Category represents a catalog category
type Category struct {
	ID            string        `db:"category_id" json:"category_id"`
	Name          string        `db:"name" json:"name"`
	Subcategories []Subcategory `db:"-" json:"subcategories"`
}

// PricePoint is one entry of a product's price history
type PricePoint struct {
	Price float64   `json:"price"`
	Date  time.Time `json:"date"`
}

// Product represents a product in the catalog
type Product struct {
	ID            string       `db:"product_id" json:"product_id"`
	Name          string       `db:"name" json:"name"`
	CategoryID    string       `db:"category_id" json:"category_id"`
	SubcategoryID string       `db:"subcategory_id" json:"subcategory_id"`
	Price         float64      `db:"base_price" json:"base_price"`
	Stock         int          `db:"current_stock" json:"current_stock"`
	Active        bool         `db:"is_active" json:"is_active"`
	PriceHistory  []PricePoint `db:"-" json:"price_history"`
	CreatedAt     time.Time    `db:"creation_date" json:"creation_date"`
}

// GeoData holds the location attributes of a user or session
type GeoData struct {
	City      string `json:"city"`
	State     string `json:"state"`
	Country   string `json:"country"`
	IPAddress string `json:"ip_address,omitempty"`
}

// User represents a registered shopper
type User struct {
	ID               string    `db:"user_id" json:"user_id"`
	Geo              GeoData   `db:"-" json:"geo_data"`
	RegistrationDate time.Time `db:"registration_date" json:"registration_date"`
	LastActive       time.Time `db:"last_active" json:"last_active"`
}

// DeviceProfile describes the client a session was made from
type DeviceProfile struct {
	Type    string `json:"type"`
	OS      string `json:"os"`
	Browser string `json:"browser"`
}

// PageView is one step of a session timeline
type PageView struct {
	Timestamp    time.Time `json:"timestamp"`
	PageType     string    `json:"page_type"`
	ProductID    *string   `json:"product_id"`
	CategoryID   *string   `json:"category_id"`
	ViewDuration int       `json:"view_duration"`
}

// Session represents a synthesized browsing session
type Session struct {
	ID               string        `db:"session_id" json:"session_id"`
	UserID           string        `db:"user_id" json:"user_id"`
	StartTime        time.Time     `db:"start_time" json:"start_time"`
	EndTime          time.Time     `db:"end_time" json:"end_time"`
	DurationSeconds  int           `db:"duration_seconds" json:"duration_seconds"`
	Geo              GeoData       `db:"-" json:"geo_data"`
	Device           DeviceProfile `db:"-" json:"device_profile"`
	ViewedProducts   []string      `db:"-" json:"viewed_products"`
	PageViews        []PageView    `db:"-" json:"page_views"`
	Cart             *Cart         `db:"-" json:"cart_contents"`
	ConversionStatus string        `db:"conversion_status" json:"conversion_status"`
	Referrer         string        `db:"referrer" json:"referrer"`
}

// LineItem represents one product line of a transaction
type LineItem struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
}

// Transaction represents a committed purchase
type Transaction struct {
	ID            string     `db:"transaction_id" json:"transaction_id"`
	UserID        string     `db:"user_id" json:"user_id"`
	SessionID     *string    `db:"session_id" json:"session_id"`
	Timestamp     time.Time  `db:"timestamp" json:"timestamp"`
	Items         []LineItem `db:"-" json:"items"`
	Subtotal      float64    `db:"subtotal" json:"subtotal"`
	Discount      float64    `db:"discount" json:"discount"`
	Total         float64    `db:"total" json:"total"`
	PaymentMethod string     `db:"payment_method" json:"payment_method"`
	Status        string     `db:"status" json:"status"`
}

// Conversion statuses
const (
	ConversionBrowsed   = "browsed"
	ConversionAbandoned = "abandoned"
	ConversionConverted = "converted"
)

// Transaction statuses
const (
	TransactionStatusCompleted  = "completed"
	TransactionStatusProcessing = "processing"
	TransactionStatusShipped    = "shipped"
	TransactionStatusDelivered  = "delivered"
)

var (
	PaymentMethods     = []string{"credit_card", "paypal", "bank_transfer", "gift_card"}
	StandaloneStatuses = []string{TransactionStatusCompleted, TransactionStatusProcessing, TransactionStatusShipped, TransactionStatusDelivered}
	Referrers          = []string{"direct", "email", "social", "search_engine", "affiliate"}
	DeviceTypes        = []string{"mobile", "desktop", "tablet"}
	OperatingSystems   = []string{"iOS", "Android", "Windows", "macOS"}
	Browsers           = []string{"Chrome", "Safari", "Firefox", "Edge"}
)

// CartEntry is a tentative cart line held by a session
type CartEntry struct {
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// MaxCartUnits caps the quantity of one product in one session cart
const MaxCartUnits = 3

// Cart keeps entries in insertion order. It serializes as an object keyed by
// product id, in that same order.
type Cart struct {
	order   []string
	entries map[string]*CartEntry
}

// NewCart creates an empty cart
func NewCart() *Cart {
	return &Cart{entries: make(map[string]*CartEntry)}
}

// Entry returns the entry for productID, creating it at price with quantity 0
// when absent.
func (c *Cart) Entry(productID string, price float64) *CartEntry {
	if c.entries == nil {
		c.entries = make(map[string]*CartEntry)
	}
	if e, ok := c.entries[productID]; ok {
		return e
	}
	e := &CartEntry{Price: price}
	c.entries[productID] = e
	c.order = append(c.order, productID)
	return e
}

// Get returns the entry for productID
func (c *Cart) Get(productID string) (CartEntry, bool) {
	if c == nil {
		return CartEntry{}, false
	}
	e, ok := c.entries[productID]
	if !ok {
		return CartEntry{}, false
	}
	return *e, true
}

// ProductIDs returns product ids in insertion order
func (c *Cart) ProductIDs() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len counts entries with a positive quantity
func (c *Cart) Len() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, id := range c.order {
		if c.entries[id].Quantity > 0 {
			n++
		}
	}
	return n
}

// Empty reports whether no entry has a positive quantity
func (c *Cart) Empty() bool {
	return c.Len() == 0
}

func (c *Cart) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	if c != nil {
		for _, id := range c.order {
			e := c.entries[id]
			if e.Quantity <= 0 {
				continue
			}
			if !first {
				buf.WriteByte(',')
			}
			first = false

			key, err := json.Marshal(id)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(e)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *Cart) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("cart: expected object, got %v", tok)
	}

	c.order = nil
	c.entries = make(map[string]*CartEntry)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := tok.(string)
		if !ok {
			return fmt.Errorf("cart: expected product id key, got %v", tok)
		}
		var e CartEntry
		if err := dec.Decode(&e); err != nil {
			return fmt.Errorf("cart: failed to decode entry %s: %w", id, err)
		}
		c.order = append(c.order, id)
		c.entries[id] = &e
	}
	_, err = dec.Token()
	return err
}
