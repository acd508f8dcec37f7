// Package memory is an in-process store used by tests and local development.
// It mirrors the remote store's observable behavior: monotonic report ids,
// per-category 1-based sequences that renumber on delete, and cached header
// running totals.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/core"
	"github.com/meteor-lighting/MAKI-TW-Businesstrip/internal/store"
)

type reportState struct {
	header core.Header
	items  map[core.Category][]core.Item
}

// Store implements every store port in memory.
type Store struct {
	mu      sync.Mutex
	nextID  int
	reports map[string]*reportState

	rates   map[string]decimal.Decimal
	cities  []string
	flights map[string]store.FlightInfo

	users     map[string]store.User // by email
	passwords map[string]string     // by email
	nextUser  int
}

var (
	_ store.ReportStore    = (*Store)(nil)
	_ store.RateSource     = (*Store)(nil)
	_ store.CitySearcher   = (*Store)(nil)
	_ store.FlightSearcher = (*Store)(nil)
	_ store.Identity       = (*Store)(nil)
)

func New() *Store {
	return &Store{
		reports:   make(map[string]*reportState),
		rates:     make(map[string]decimal.Decimal),
		flights:   make(map[string]store.FlightInfo),
		users:     make(map[string]store.User),
		passwords: make(map[string]string),
	}
}

// CreateReport implements store.ReportStore.
func (s *Store) CreateReport(ctx context.Context, userID string, exchangeRate decimal.Decimal) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := fmt.Sprintf("R%04d", s.nextID)
	s.reports[id] = &reportState{
		header: core.Header{
			ReportID:       id,
			UserID:         userID,
			RateUSD:        exchangeRate,
			CategoryTotals: make(map[core.Category]decimal.Decimal),
		},
		items: make(map[core.Category][]core.Item),
	}
	return id, nil
}

// GetReport implements store.ReportStore. The returned report is a deep copy;
// callers can mutate it freely.
func (s *Store) GetReport(ctx context.Context, reportID string) (store.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.reports[reportID]
	if !ok {
		return store.Report{}, store.ErrReportNotFound
	}
	return snapshot(st), nil
}

// AddItem implements store.ReportStore. The item's sequence is assigned here;
// any caller-provided value is ignored.
func (s *Store) AddItem(ctx context.Context, reportID string, item core.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.reports[reportID]
	if !ok {
		return store.ErrReportNotFound
	}
	item.Sequence = len(st.items[item.Category]) + 1
	st.items[item.Category] = append(st.items[item.Category], item)
	s.recalcTotals(st)
	return nil
}

// DeleteItem implements store.ReportStore. Remaining items renumber so
// sequences stay dense and 1-based.
func (s *Store) DeleteItem(ctx context.Context, reportID string, cat core.Category, sequence int) error {
	if sequence < 1 {
		return core.ErrInvalidSequence
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.reports[reportID]
	if !ok {
		return store.ErrReportNotFound
	}
	items := st.items[cat]
	if sequence > len(items) {
		return store.ErrItemNotFound
	}
	items = append(items[:sequence-1], items[sequence:]...)
	for i := range items {
		items[i].Sequence = i + 1
	}
	st.items[cat] = items
	s.recalcTotals(st)
	return nil
}

// recalcTotals refreshes the header's cached running totals. They exist only
// because the remote store keeps them; readers treat them as display hints.
func (s *Store) recalcTotals(st *reportState) {
	totals := make(map[core.Category]decimal.Decimal)
	for cat, items := range st.items {
		sum := decimal.Zero
		for _, it := range items {
			sum = sum.Add(it.TotalTWD())
		}
		totals[cat] = sum
	}
	st.header.CategoryTotals = totals
}

// SetTripInfo fills the trip-level header fields the remote store derives
// from its own sheet.
func (s *Store) SetTripInfo(ctx context.Context, reportID string, days, rateUSD decimal.Decimal, startDate, endDate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.reports[reportID]
	if !ok {
		return store.ErrReportNotFound
	}
	st.header.Days = days
	st.header.RateUSD = rateUSD
	st.header.StartDate = startDate
	st.header.EndDate = endDate
	return nil
}

// ExchangeRate implements store.RateSource.
func (s *Store) ExchangeRate(ctx context.Context, currency string, date core.Date) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rate, ok := s.rates[rateKey(currency, date)]
	if !ok {
		return decimal.Zero, store.ErrNoRate
	}
	return rate, nil
}

// SeedRate registers a rate for (currency, date).
func (s *Store) SeedRate(currency string, date core.Date, rate decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[rateKey(currency, date)] = rate
}

func rateKey(currency string, date core.Date) string {
	return currency + " " + date.String()
}

// SearchCity implements store.CitySearcher with a case-insensitive prefix
// match.
func (s *Store) SearchCity(ctx context.Context, query string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}
	var out []string
	for _, c := range s.cities {
		if strings.HasPrefix(strings.ToLower(c), q) {
			out = append(out, c)
		}
	}
	return out, nil
}

// SeedCities registers autocomplete entries.
func (s *Store) SeedCities(cities ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cities = append(s.cities, cities...)
}

// SearchFlight implements store.FlightSearcher.
func (s *Store) SearchFlight(ctx context.Context, code string, date core.Date) (store.FlightInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.flights[strings.ToUpper(code)]
	if !ok {
		return store.FlightInfo{}, store.ErrItemNotFound
	}
	return info, nil
}

// SeedFlight registers an autofill entry for a flight code.
func (s *Store) SeedFlight(code string, info store.FlightInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flights[strings.ToUpper(code)] = info
}

// SignIn implements store.Identity.
func (s *Store) SignIn(ctx context.Context, email, password string) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[email]
	if !ok || s.passwords[email] != password {
		return store.User{}, fmt.Errorf("signin %q: invalid credentials", email)
	}
	return u, nil
}

// SignUp implements store.Identity.
func (s *Store) SignUp(ctx context.Context, name, email, password string) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[email]; exists {
		return store.User{}, fmt.Errorf("signup %q: account exists", email)
	}
	s.nextUser++
	u := store.User{ID: fmt.Sprintf("u-%d", s.nextUser), Name: name, Email: email}
	s.users[email] = u
	s.passwords[email] = password
	return u, nil
}

// ForgotPassword implements store.Identity.
func (s *Store) ForgotPassword(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[email]; !ok {
		return fmt.Errorf("forgot password %q: unknown account", email)
	}
	return nil
}

// ChangePassword implements store.Identity.
func (s *Store) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for email, u := range s.users {
		if u.ID == userID {
			if s.passwords[email] != oldPassword {
				return fmt.Errorf("change password: invalid credentials")
			}
			s.passwords[email] = newPassword
			return nil
		}
	}
	return fmt.Errorf("change password: unknown account")
}

func snapshot(st *reportState) store.Report {
	header := st.header
	header.CategoryTotals = make(map[core.Category]decimal.Decimal, len(st.header.CategoryTotals))
	for cat, total := range st.header.CategoryTotals {
		header.CategoryTotals[cat] = total
	}

	items := make(store.ItemsByCategory, len(st.items))
	for cat, catItems := range st.items {
		cp := make([]core.Item, len(catItems))
		copy(cp, catItems)
		for i := range cp {
			if cp[i].Flight != nil {
				f := *cp[i].Flight
				cp[i].Flight = &f
			}
			if cp[i].Lodging != nil {
				l := *cp[i].Lodging
				cp[i].Lodging = &l
			}
		}
		items[cat] = cp
	}
	return store.Report{Header: header, Items: items}
}
