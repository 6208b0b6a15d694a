package service

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"ecommerce-datagen/internal/catalog"
	"ecommerce-datagen/internal/models"
	"ecommerce-datagen/internal/pageflow"
	"ecommerce-datagen/internal/util"

	"go.uber.org/zap"
)

const (
	minPageViews     = 4
	maxPageViews     = 15
	cartAddChance    = 0.3
	conversionChance = 0.7
)

// SessionSynthesizer walks the page-flow chain over a session's time budget
type SessionSynthesizer struct {
	selector *pageflow.Selector
	logger   *zap.Logger
}

// NewSessionSynthesizer creates a new session synthesizer
func NewSessionSynthesizer(selector *pageflow.Selector) *SessionSynthesizer {
	return &SessionSynthesizer{
		selector: selector,
		logger:   util.GetLogger(),
	}
}

// Synthesize builds one session for user starting at start and lasting
// duration seconds. The returned status is provisional: a converted session
// only stays converted if its transaction commits.
func (s *SessionSynthesizer) Synthesize(ctx context.Context, rng *rand.Rand, user *models.User, start time.Time, duration int) (*models.Session, error) {
	if duration < 2 {
		return nil, fmt.Errorf("session duration must be at least 2 seconds, got %d", duration)
	}

	id, err := newID(rng, "sess_")
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		ID:              id,
		UserID:          user.ID,
		StartTime:       start,
		EndTime:         start.Add(time.Duration(duration) * time.Second),
		DurationSeconds: duration,
		ViewedProducts:  []string{},
		Cart:            models.NewCart(),
	}

	breakpoints := s.breakpoints(rng, duration)
	session.PageViews = make([]models.PageView, 0, len(breakpoints)-1)

	viewed := make(map[string]struct{})
	prev := pageflow.Start
	for i := 0; i < len(breakpoints)-1; i++ {
		page := pageflow.Next(rng, prev)
		content, err := s.selector.Select(ctx, rng, page)
		if err != nil {
			return nil, fmt.Errorf("failed to select content for session %s: %w", id, err)
		}

		view := models.PageView{
			Timestamp:    start.Add(time.Duration(breakpoints[i]) * time.Second),
			PageType:     string(page),
			ViewDuration: breakpoints[i+1] - breakpoints[i],
		}

		if p := content.Product; p != nil {
			pid := p.ID
			view.ProductID = &pid

			if page == pageflow.ProductDetail {
				if _, seen := viewed[pid]; !seen {
					viewed[pid] = struct{}{}
					session.ViewedProducts = append(session.ViewedProducts, pid)
				}
				if rng.Float64() < cartAddChance {
					addToCart(rng, session.Cart, p)
				}
			}
		}
		if c := content.Category; c != nil {
			cid := c.ID
			view.CategoryID = &cid
		}

		session.PageViews = append(session.PageViews, view)
		prev = page
	}

	session.ConversionStatus = s.classify(rng, session)

	faker := catalog.NewFaker(rng.Int63())
	session.Geo = user.Geo
	session.Geo.IPAddress = faker.IPv4Address()
	session.Device = models.DeviceProfile{
		Type:    pick(rng, models.DeviceTypes),
		OS:      pick(rng, models.OperatingSystems),
		Browser: pick(rng, models.Browsers),
	}
	session.Referrer = pick(rng, models.Referrers)

	return session, nil
}

// breakpoints splits [0, duration] into between minPageViews and
// maxPageViews segments. Equal cut points give zero-length views.
func (s *SessionSynthesizer) breakpoints(rng *rand.Rand, duration int) []int {
	n := minPageViews + rng.Intn(maxPageViews-minPageViews+1)

	points := make([]int, 0, n+1)
	points = append(points, 0)
	for i := 0; i < n-1; i++ {
		points = append(points, 1+rng.Intn(duration-1))
	}
	points = append(points, duration)
	sort.Ints(points)
	return points
}

// addToCart adds 1..headroom units, where headroom keeps the product at or
// below models.MaxCartUnits for the session. Stock is checked at commit.
func addToCart(rng *rand.Rand, cart *models.Cart, p *models.Product) {
	entry := cart.Entry(p.ID, p.Price)
	headroom := models.MaxCartUnits - entry.Quantity
	if headroom > 0 {
		entry.Quantity += 1 + rng.Intn(headroom)
	}
}

func (s *SessionSynthesizer) classify(rng *rand.Rand, session *models.Session) string {
	if session.Cart.Empty() {
		return models.ConversionBrowsed
	}

	reachedCheckout := false
	for _, pv := range session.PageViews {
		if pageflow.IsCheckoutStage(pageflow.PageType(pv.PageType)) {
			reachedCheckout = true
			break
		}
	}

	if reachedCheckout && rng.Float64() < conversionChance {
		return models.ConversionConverted
	}
	return models.ConversionAbandoned
}
