// Package session holds the per-session view state of the journal: the trades of
// the active month, the active filters and the metadata used to drive pickers.
//
// A Store is created once per session and reloads from the trade service after
// every successful write instead of patching its cached trades. Every load takes a
// sequence number; a response that is no longer the latest is dropped, so a slow
// month switch can never overwrite a newer one.
package session

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"fxjournal/internal/calc"
	apperrors "fxjournal/internal/errors"
	"fxjournal/internal/logger"
	"fxjournal/internal/models"
	"fxjournal/internal/services"
)

// Filters are the listing filters a user can toggle. The active month and the
// selected date are kept separately in State.
type Filters struct {
	Symbols   []string
	Direction *models.Direction
	OnlyOpen  bool
}

// FilterPatch changes some filters. Absent fields are kept and null clears.
type FilterPatch struct {
	Symbols   models.Optional[[]string]
	Direction models.Optional[models.Direction]
	OnlyOpen  models.Optional[bool]
}

// State is a snapshot of the store.
type State struct {
	Trades       []models.Trade
	Loading      bool
	Err          string
	MonthKeys    []string
	ActiveMonth  string
	Filters      Filters
	SelectedDate string
	Symbols      []string
}

// Store is the view-state cache of one session. It is safe for concurrent use.
type Store struct {
	repo   services.TradeServicer
	userID string
	log    *zap.SugaredLogger
	now    func() time.Time

	mu      sync.Mutex
	state   State
	loadSeq uint64
	metaSeq uint64
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now, which decides the default and always-listed month.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger replaces the store's logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Store) { s.log = log }
}

// New creates a Store for userID reading and writing through repo. The active
// month starts as the current month; nothing is loaded until asked.
func New(repo services.TradeServicer, userID string, opts ...Option) *Store {
	s := &Store{
		repo:   repo,
		userID: userID,
		log:    logger.Named("session"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = State{
		Trades:      []models.Trade{},
		MonthKeys:   []string{},
		Symbols:     []string{},
		ActiveMonth: calc.MonthKey(s.now()),
	}
	return s
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	st.Trades = append([]models.Trade{}, s.state.Trades...)
	st.MonthKeys = append([]string{}, s.state.MonthKeys...)
	st.Symbols = append([]string{}, s.state.Symbols...)
	st.Filters.Symbols = append([]string(nil), s.state.Filters.Symbols...)
	if s.state.Filters.Direction != nil {
		d := *s.state.Filters.Direction
		st.Filters.Direction = &d
	}
	return st
}

// begin marks a load in flight and returns its sequence number.
func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadSeq++
	s.state.Loading = true
	s.state.Err = ""
	return s.loadSeq
}

// finish applies a load result unless a newer load has started since seq.
func (s *Store) finish(seq uint64, apply func(st *State)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.loadSeq {
		s.log.Debugw("dropping stale load", "seq", seq, "latest", s.loadSeq)
		return false
	}
	apply(&s.state)
	s.state.Loading = false
	return true
}

// failLoad records a load error unless the load is stale.
func (s *Store) failLoad(seq uint64, err error) {
	s.finish(seq, func(st *State) { st.Err = err.Error() })
}

// failWrite records a write error. Writes are user actions, so their errors are
// always shown even if a load started meanwhile.
func (s *Store) failWrite(seq uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Err = err.Error()
	if seq == s.loadSeq {
		s.state.Loading = false
	}
}

func (s *Store) load(list func() ([]models.Trade, error), apply func(st *State)) error {
	seq := s.begin()
	trades, err := list()
	if err != nil {
		s.failLoad(seq, err)
		return err
	}
	s.finish(seq, func(st *State) {
		st.Trades = trades
		if apply != nil {
			apply(st)
		}
	})
	return nil
}

// LoadTrades loads every trade of the user.
func (s *Store) LoadTrades() error {
	return s.load(func() ([]models.Trade, error) {
		return s.repo.ListTrades(s.userID)
	}, nil)
}

// LoadTradesByMonth loads the trades of monthKey and makes it the active month.
func (s *Store) LoadTradesByMonth(monthKey string) error {
	return s.load(func() ([]models.Trade, error) {
		return s.repo.ListTradesByMonth(s.userID, monthKey)
	}, func(st *State) {
		st.ActiveMonth = monthKey
	})
}

// LoadTradesByFilters loads the trades matching the active filters within the
// active month and, when set, the selected date.
func (s *Store) LoadTradesByFilters() error {
	s.mu.Lock()
	filter := services.TradeFilter{
		Symbols:   append([]string(nil), s.state.Filters.Symbols...),
		Direction: s.state.Filters.Direction,
		OnlyOpen:  s.state.Filters.OnlyOpen,
		MonthKey:  s.state.ActiveMonth,
		Date:      s.state.SelectedDate,
	}
	s.mu.Unlock()

	return s.load(func() ([]models.Trade, error) {
		return s.repo.ListTradesByFilter(s.userID, filter)
	}, nil)
}

func (s *Store) activeMonth() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ActiveMonth
}

// afterWrite reloads the active month and the metadata. A reload failure is
// recorded in the state; the write itself already succeeded.
func (s *Store) afterWrite() {
	_ = s.LoadTradesByMonth(s.activeMonth())
	s.RefreshMetadata()
}

// AddTrade stores a new trade and reloads.
func (s *Store) AddTrade(attrs models.TradeAttributes) (*models.Trade, error) {
	seq := s.begin()
	trade, err := s.repo.AddTrade(s.userID, attrs)
	if err != nil {
		s.failWrite(seq, err)
		return nil, err
	}
	s.afterWrite()
	return trade, nil
}

// UpdateTrade applies patch to a stored trade and reloads.
func (s *Store) UpdateTrade(tradeID string, patch models.TradePatch) (*models.Trade, error) {
	seq := s.begin()
	trade, err := s.repo.UpdateTrade(s.userID, tradeID, patch)
	if err != nil {
		s.failWrite(seq, err)
		return nil, err
	}
	s.afterWrite()
	return trade, nil
}

// DeleteTrade removes a trade and reloads.
func (s *Store) DeleteTrade(tradeID string) error {
	seq := s.begin()
	if err := s.repo.DeleteTrade(s.userID, tradeID); err != nil {
		s.failWrite(seq, err)
		return err
	}
	s.afterWrite()
	return nil
}

// SetActiveMonth switches the active month and loads its trades.
func (s *Store) SetActiveMonth(monthKey string) error {
	if !calc.ValidMonthKey(monthKey) {
		s.mu.Lock()
		s.state.Err = apperrors.ErrInvalidMonth.Message
		s.mu.Unlock()
		return apperrors.ErrInvalidMonth
	}

	s.mu.Lock()
	s.state.ActiveMonth = monthKey
	s.mu.Unlock()

	return s.LoadTradesByMonth(monthKey)
}

// SetFilters merges patch into the active filters and reloads with them.
func (s *Store) SetFilters(patch FilterPatch) error {
	s.mu.Lock()
	f := &s.state.Filters
	if patch.Symbols.Set {
		f.Symbols = nil
		if !patch.Symbols.Null {
			f.Symbols = append([]string(nil), patch.Symbols.Value...)
		}
	}
	if patch.Direction.Set {
		f.Direction = patch.Direction.Ptr()
	}
	if patch.OnlyOpen.Set {
		f.OnlyOpen = !patch.OnlyOpen.Null && patch.OnlyOpen.Value
	}
	s.mu.Unlock()

	return s.LoadTradesByFilters()
}

// SetSelectedDate narrows listings to one "YYYY-MM-DD" date; "" clears it.
func (s *Store) SetSelectedDate(date string) error {
	s.mu.Lock()
	s.state.SelectedDate = date
	s.mu.Unlock()

	return s.LoadTradesByFilters()
}

// RefreshMetadata reloads the month keys and symbols. The current month is
// always listed. Failures are logged and leave the previous metadata in place.
func (s *Store) RefreshMetadata() {
	s.mu.Lock()
	s.metaSeq++
	seq := s.metaSeq
	s.mu.Unlock()

	monthKeys, err := s.repo.ListMonthKeys(s.userID)
	if err != nil {
		s.log.Warnw("failed to refresh month keys", "user_id", s.userID, "error", err)
		return
	}
	symbols, err := s.repo.ListSymbols(s.userID)
	if err != nil {
		s.log.Warnw("failed to refresh symbols", "user_id", s.userID, "error", err)
		return
	}

	monthKeys = withMonth(monthKeys, calc.MonthKey(s.now()))

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.metaSeq {
		return
	}
	s.state.MonthKeys = monthKeys
	s.state.Symbols = append([]string{}, symbols...)
}

// ClearError resets the error message.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Err = ""
}

// withMonth returns keys plus month, deduplicated and newest first.
func withMonth(keys []string, month string) []string {
	out := make([]string, 0, len(keys)+1)
	seen := make(map[string]bool, len(keys)+1)
	add := func(k string) {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for _, k := range keys {
		add(k)
	}
	add(month)
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}
