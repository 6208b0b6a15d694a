package catalog

import (
	"fmt"
	"time"

	"ecommerce-datagen/internal/models"
	"ecommerce-datagen/internal/money"

	"github.com/brianvoe/gofakeit/v6"
)

const (
	day = 24 * time.Hour

	// activeShare is the fraction of products listed as purchasable
	activeShare = 0.95
)

// Config sizes the fixtures and anchors their dates
type Config struct {
	Categories   int
	Products     int
	Users        int
	TimespanDays int
	WindowEnd    time.Time
}

// Catalog is the read-only set of categories, products and users a run
// draws from. Product stock here is the initial stock; live stock belongs to
// the inventory ledger.
type Catalog struct {
	Categories []models.Category
	Products   []models.Product
	Users      []models.User

	productIdx  map[string]int
	categoryIdx map[string]int
}

// Generate builds a catalog from seed
func Generate(cfg Config, seed int64) *Catalog {
	f := NewFaker(seed)
	timespan := time.Duration(cfg.TimespanDays) * day

	c := &Catalog{
		Categories: generateCategories(f, cfg.Categories),
	}
	c.Products = generateProducts(f, cfg.Products, c.Categories, cfg.WindowEnd, timespan)
	c.Users = generateUsers(f, cfg.Users, cfg.WindowEnd, timespan)
	c.index()
	return c
}

// New wraps already built fixtures
func New(categories []models.Category, products []models.Product, users []models.User) *Catalog {
	c := &Catalog{Categories: categories, Products: products, Users: users}
	c.index()
	return c
}

func (c *Catalog) index() {
	c.productIdx = make(map[string]int, len(c.Products))
	for i, p := range c.Products {
		c.productIdx[p.ID] = i
	}
	c.categoryIdx = make(map[string]int, len(c.Categories))
	for i, cat := range c.Categories {
		c.categoryIdx[cat.ID] = i
	}
}

// ProductByID looks up a product
func (c *Catalog) ProductByID(id string) (*models.Product, bool) {
	i, ok := c.productIdx[id]
	if !ok {
		return nil, false
	}
	return &c.Products[i], true
}

// CategoryByID looks up a category
func (c *Catalog) CategoryByID(id string) (*models.Category, bool) {
	i, ok := c.categoryIdx[id]
	if !ok {
		return nil, false
	}
	return &c.Categories[i], true
}

// InitialStock returns product id -> stock as generated
func (c *Catalog) InitialStock() map[string]int {
	out := make(map[string]int, len(c.Products))
	for _, p := range c.Products {
		out[p.ID] = p.Stock
	}
	return out
}

// WithStock returns copies of the products carrying the given stock counts.
// Products missing from stock keep their catalog value.
func (c *Catalog) WithStock(stock map[string]int) []models.Product {
	out := make([]models.Product, len(c.Products))
	copy(out, c.Products)
	for i := range out {
		if s, ok := stock[out[i].ID]; ok {
			out[i].Stock = s
		}
	}
	return out
}

func generateCategories(f *gofakeit.Faker, n int) []models.Category {
	categories := make([]models.Category, 0, n)
	for i := 0; i < n; i++ {
		subs := make([]models.Subcategory, f.Number(3, 5))
		for j := range subs {
			subs[j] = models.Subcategory{
				ID:           fmt.Sprintf("sub_%03d_%02d", i, j),
				Name:         f.BS(),
				ProfitMargin: money.Round(f.Float64Range(0.1, 0.4)),
			}
		}
		categories = append(categories, models.Category{
			ID:            fmt.Sprintf("cat_%03d", i),
			Name:          f.Company(),
			Subcategories: subs,
		})
	}
	return categories
}

func generateProducts(f *gofakeit.Faker, n int, categories []models.Category, end time.Time, timespan time.Duration) []models.Product {
	if len(categories) == 0 {
		return nil
	}

	creationStart := end.Add(-2 * timespan)
	products := make([]models.Product, 0, n)

	for i := 0; i < n; i++ {
		category := categories[f.Number(0, len(categories)-1)]
		sub := category.Subcategories[f.Number(0, len(category.Subcategories)-1)]

		basePrice := money.Round(f.Float64Range(5, 500))
		date := f.DateRange(creationStart, creationStart.Add(timespan/3)).Truncate(time.Second)
		history := []models.PricePoint{{Price: basePrice, Date: date}}

		for k := f.Number(0, 2); k > 0; k-- {
			date = f.DateRange(date, end).Truncate(time.Second)
			history = append(history, models.PricePoint{
				Price: money.Scale(basePrice, f.Float64Range(0.8, 1.2)),
				Date:  date,
			})
		}

		products = append(products, models.Product{
			ID:            fmt.Sprintf("prod_%05d", i),
			Name:          f.ProductName(),
			CategoryID:    category.ID,
			SubcategoryID: sub.ID,
			Price:         history[len(history)-1].Price,
			Stock:         f.Number(10, 1000),
			Active:        f.Float64Range(0, 1) < activeShare,
			PriceHistory:  history,
			CreatedAt:     history[0].Date,
		})
	}
	return products
}

func generateUsers(f *gofakeit.Faker, n int, end time.Time, timespan time.Duration) []models.User {
	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		registered := f.DateRange(end.Add(-3*timespan), end.Add(-timespan)).Truncate(time.Second)
		users = append(users, models.User{
			ID: fmt.Sprintf("user_%06d", i),
			Geo: models.GeoData{
				City:    f.City(),
				State:   f.StateAbr(),
				Country: f.CountryAbr(),
			},
			RegistrationDate: registered,
			LastActive:       f.DateRange(registered, end).Truncate(time.Second),
		})
	}
	return users
}
