package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// MaxDevices bounds the device index accepted by the trigger table.
const MaxDevices = 8

// Initialization retry policy defaults.
const (
	DefaultInitAttempts       = 3
	DefaultInitAttemptTimeout = 500 * time.Millisecond
	DefaultInitPollInterval   = 10 * time.Millisecond
)

var (
	ErrInitialization     = errors.New("action table initialization failed")
	ErrCatalogUnavailable = errors.New("action catalog unavailable")
)

// RetryPolicy bounds how long EnsureInitialized waits for the table.
type RetryPolicy struct {
	Attempts       int
	AttemptTimeout time.Duration
	PollInterval   time.Duration
}

// DefaultRetryPolicy waits at most Attempts*AttemptTimeout.
var DefaultRetryPolicy = RetryPolicy{
	Attempts:       DefaultInitAttempts,
	AttemptTimeout: DefaultInitAttemptTimeout,
	PollInterval:   DefaultInitPollInterval,
}

// Worst returns the longest EnsureInitialized can block under p.
func (p RetryPolicy) Worst() time.Duration {
	return time.Duration(p.Attempts) * p.AttemptTimeout
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultInitAttempts
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = DefaultInitAttemptTimeout
	}
	if p.PollInterval <= 0 {
		p.PollInterval = DefaultInitPollInterval
	}
	return p
}

// CatalogSource supplies the catalog a forced initialization uses.
type CatalogSource interface {
	Catalog() (*Catalog, error)
}

// CatalogFunc adapts a function to CatalogSource.
type CatalogFunc func() (*Catalog, error)

func (f CatalogFunc) Catalog() (*Catalog, error) { return f() }

// StaticSource always returns the same catalog.
func StaticSource(c *Catalog) CatalogSource {
	return CatalogFunc(func() (*Catalog, error) {
		if c == nil {
			return nil, ErrCatalogUnavailable
		}
		return c, nil
	})
}

// TableState is the lifecycle of a Table.
type TableState uint8

const (
	Uninitialized TableState = iota
	Initializing
	Initialized
)

func (s TableState) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Initialized:
		return "initialized"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Table holds the per-device, per-action trigger latches. Every field is
// guarded by mu, including the catalog the table was sized for.
type Table struct {
	mu         sync.Mutex
	state      TableState
	source     CatalogSource
	catalog    *Catalog
	active     [][MaxDevices]bool
	generation uint64

	policy RetryPolicy
	logger *slog.Logger
}

// NewTable creates an uninitialized table. source may be nil until Reload
// or SetSource provides one.
func NewTable(source CatalogSource, policy RetryPolicy, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	return &Table{
		source: source,
		policy: policy.normalized(),
		logger: logger,
	}
}

// SetSource replaces the catalog source used by forced initialization.
func (t *Table) SetSource(s CatalogSource) {
	t.mu.Lock()
	t.source = s
	t.mu.Unlock()
}

// Policy returns the effective retry policy.
func (t *Table) Policy() RetryPolicy { return t.policy }

// Initialize sizes the table to c. It is a no-op when already initialized,
// so concurrent callers perform exactly one allocation pass.
func (t *Table) Initialize(c *Catalog) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.initializeLocked(c)
}

func (t *Table) initializeLocked(c *Catalog) error {
	if t.state == Initialized {
		return nil
	}
	if c == nil {
		return fmt.Errorf("%w: %w", ErrInitialization, ErrCatalogUnavailable)
	}
	t.state = Initializing
	t.active = make([][MaxDevices]bool, c.Len())
	t.catalog = c
	t.generation++
	t.state = Initialized
	return nil
}

// Invalidate drops the table. Readers observe Uninitialized until the next
// Initialize.
func (t *Table) Invalidate() {
	t.mu.Lock()
	t.invalidateLocked()
	t.mu.Unlock()
}

func (t *Table) invalidateLocked() {
	t.state = Uninitialized
	t.active = nil
	t.catalog = nil
}

// Reload swaps in a new catalog and rebuilds the table in one critical
// section.
func (t *Table) Reload(c *Catalog) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.invalidateLocked()
	t.source = StaticSource(c)
	return t.initializeLocked(c)
}

// State returns the current lifecycle state.
func (t *Table) State() TableState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Initialized reports whether the table may be indexed.
func (t *Table) Initialized() bool { return t.State() == Initialized }

// Generation counts allocation passes.
func (t *Table) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.generation
}

// Len returns the number of action rows, 0 when not initialized.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Initialized {
		return 0
	}
	return len(t.active)
}

// Snapshot returns the catalog the table is sized for and its generation.
func (t *Table) Snapshot() (*Catalog, uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Initialized {
		return nil, 0, false
	}
	return t.catalog, t.generation, true
}

// EnsureInitialized blocks until the table is initialized, forcing an
// initialization from the catalog source after each unsuccessful attempt.
// It returns false when the policy is exhausted or ctx ends; the caller
// must then skip trigger evaluation for this cycle.
func (t *Table) EnsureInitialized(ctx context.Context) bool {
	if t.Initialized() {
		return true
	}
	p := t.policy
	ticker := time.NewTicker(p.PollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= p.Attempts; attempt++ {
		deadline := time.Now().Add(p.AttemptTimeout)
		for !t.Initialized() && time.Now().Before(deadline) {
			select {
			case <-ctx.Done():
				return false
			case <-ticker.C:
			}
		}
		if t.Initialized() {
			return true
		}
		if err := t.force(); err != nil {
			t.logger.Debug("forced action table initialization failed", "attempt", attempt, "error", err)
		}
	}
	return t.Initialized()
}

func (t *Table) force() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrInitialization, r)
		}
	}()
	t.mu.Lock()
	src := t.source
	t.mu.Unlock()
	if src == nil {
		return fmt.Errorf("%w: %w", ErrInitialization, ErrCatalogUnavailable)
	}
	c, err := src.Catalog()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	return t.Initialize(c)
}

func (t *Table) validLocked(device, action int) bool {
	return t.state == Initialized &&
		device >= 0 && device < MaxDevices &&
		action >= 0 && action < len(t.active)
}

// Get returns the latch of (device, action). ok is false when the table is
// not initialized or either index is out of range.
func (t *Table) Get(device, action int) (active, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.validLocked(device, action) {
		return false, false
	}
	return t.active[action][device], true
}

// Latch stores the chord state for (device, action) and reports whether
// the action fires, i.e. it just became active. gen must be the generation
// returned by the Snapshot taken in the same cycle; a rebuilt table yields
// ok=false.
func (t *Table) Latch(device, action int, gen uint64, active bool) (fire, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.generation || !t.validLocked(device, action) {
		return false, false
	}
	prev := t.active[action][device]
	t.active[action][device] = active
	return active && !prev, true
}

// ResetDevice clears every latch of a device slot.
func (t *Table) ResetDevice(device int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if device < 0 || device >= MaxDevices {
		return
	}
	for i := range t.active {
		t.active[i][device] = false
	}
}
