package pets

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Mohsinsiddi/cryptopet/internal/contract"
)

var (
	// ErrTransactionFailed is returned when a pet transaction was mined but reverted.
	ErrTransactionFailed = contract.ErrTransactionFailed
	// ErrPetNotFound is returned when selecting an id outside the current set.
	ErrPetNotFound = errors.New("pet not found")
	// ErrEmptyName is returned by Mint for a blank name.
	ErrEmptyName = errors.New("pet name is required")
)

const (
	// fetchConcurrency bounds per-pet reads during a Fetch.
	fetchConcurrency = 8
	// ReconcileTimeout bounds the refetch that follows every write.
	ReconcileTimeout = 30 * time.Second
)

// Binding is the connection the synchronizer reads through.
type Binding struct {
	Facade    *contract.Facade
	Owner     common.Address
	Connected bool
}

// Snapshot is a copy of the synchronizer state.
type Snapshot struct {
	Pets     []Record
	Selected Record
	Loading  bool
	Err      error
}

// Synchronizer holds the pets of the connected account. Every write is
// followed by a full refetch; there are no optimistic updates.
type Synchronizer struct {
	source func() Binding
	meta   *MetadataResolver
	log    *zap.Logger
	check  func(context.Context) error

	mu       sync.Mutex
	gen      uint64
	closed   bool
	pets     []Record
	selected string
	loading  bool
	err      error
	subs     map[int]func(Snapshot)
	nextSub  int
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithWriteCheck runs check before every write. A failing check aborts the
// write before anything is sent.
func WithWriteCheck(check func(context.Context) error) Option {
	return func(s *Synchronizer) { s.check = check }
}

// NewSynchronizer returns a synchronizer reading the binding from source on
// every call. meta may be nil, in which case images are not resolved.
func NewSynchronizer(source func() Binding, meta *MetadataResolver, log *zap.Logger, opts ...Option) *Synchronizer {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Synchronizer{
		source: source,
		meta:   meta,
		log:    log.Named("pets"),
		subs:   make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch reloads all pets of the connected account. It does nothing when no
// wallet is connected. Results of a fetch superseded by a newer one, or
// finishing after Close, are dropped.
func (s *Synchronizer) Fetch(ctx context.Context) error {
	b := s.source()
	if !b.Connected || b.Owner == (common.Address{}) || b.Facade == nil || b.Facade.Read == nil {
		return nil
	}

	gen, ok := s.begin()
	if !ok {
		return nil
	}
	records, err := s.load(ctx, b)
	if err != nil {
		s.log.Warn("fetching pets failed", zap.String("owner", b.Owner.Hex()), zap.Error(err))
		s.finish(gen, nil, err)
		return err
	}
	if s.finish(gen, records, nil) {
		s.log.Debug("pets fetched", zap.String("owner", b.Owner.Hex()), zap.Int("count", len(records)))
	}
	return nil
}

func (s *Synchronizer) load(ctx context.Context, b Binding) ([]Record, error) {
	ids, err := b.Facade.GetPetsByOwner(ctx, b.Owner)
	if err != nil {
		return nil, err
	}

	records := make([]Record, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			r, err := s.loadOne(gctx, b.Facade, id)
			if err != nil {
				return err
			}
			records[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// loadOne reads one pet. Only the stats call is required; type and image
// fall back to zero values.
func (s *Synchronizer) loadOne(ctx context.Context, f *contract.Facade, id *big.Int) (Record, error) {
	stats, err := f.GetPetStats(ctx, id)
	if err != nil {
		return Record{}, fmt.Errorf("pet %s: %w", id, err)
	}
	petType, err := f.GetPetType(ctx, id)
	if err != nil {
		s.log.Debug("pet type unavailable", zap.String("pet", id.String()), zap.Error(err))
	}
	r := FromStats(id, stats, petType)

	uri, err := f.GetTokenURI(ctx, id)
	if err != nil {
		s.log.Debug("token uri unavailable", zap.String("pet", id.String()), zap.Error(err))
	} else if s.meta != nil {
		r.ImageURI = s.meta.ImageURI(ctx, uri)
	}
	return r, nil
}

// Read loads any pet by id through the current binding, owned or not. It
// does not touch the fetched set.
func (s *Synchronizer) Read(ctx context.Context, id string) (Record, error) {
	n, err := ParseID(id)
	if err != nil {
		return Record{}, err
	}
	b := s.source()
	if b.Facade == nil || b.Facade.Read == nil {
		return Record{}, contract.ErrContractNotInitialized
	}
	return s.loadOne(ctx, b.Facade, n)
}

func (s *Synchronizer) begin() (uint64, bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, false
	}
	s.gen++
	gen := s.gen
	s.loading = true
	notify := s.notifierLocked()
	s.mu.Unlock()
	notify()
	return gen, true
}

// finish installs the result of fetch gen. It reports whether the result was kept.
func (s *Synchronizer) finish(gen uint64, records []Record, err error) bool {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return false
	}
	s.loading = false
	s.err = err
	if err == nil {
		s.pets = records
		if _, ok := s.lookupLocked(s.selected); !ok {
			s.selected = ""
			if len(records) > 0 {
				s.selected = records[0].ID
			}
		}
	}
	notify := s.notifierLocked()
	s.mu.Unlock()
	notify()
	return true
}

// Close stops the synchronizer. Fetches in flight are discarded.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.subs = make(map[int]func(Snapshot))
}

// Snapshot returns a copy of the current state.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Pets returns the current set in id order.
func (s *Synchronizer) Pets() []Record {
	return s.Snapshot().Pets
}

// Selected returns the selected pet, or the placeholder.
func (s *Synchronizer) Selected() Record {
	return s.Snapshot().Selected
}

// Select makes id the selected pet.
func (s *Synchronizer) Select(id string) error {
	s.mu.Lock()
	if _, ok := s.lookupLocked(id); !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPetNotFound, id)
	}
	s.selected = id
	notify := s.notifierLocked()
	s.mu.Unlock()
	notify()
	return nil
}

// Lookup returns the pet with id from the current set.
func (s *Synchronizer) Lookup(id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookupLocked(id)
}

// Subscribe registers fn for state changes. fn runs on the goroutine that
// changed the state, outside the lock.
func (s *Synchronizer) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Synchronizer) lookupLocked(id string) (Record, bool) {
	if id == "" {
		return Record{}, false
	}
	for _, r := range s.pets {
		if r.ID == id {
			return r, true
		}
	}
	return Record{}, false
}

func (s *Synchronizer) snapshotLocked() Snapshot {
	sel, ok := s.lookupLocked(s.selected)
	if !ok {
		sel = Placeholder()
	}
	return Snapshot{
		Pets:     append([]Record(nil), s.pets...),
		Selected: sel,
		Loading:  s.loading,
		Err:      s.err,
	}
}

// notifierLocked captures the current snapshot and subscribers. The returned
// func delivers them and must be called with the lock released.
func (s *Synchronizer) notifierLocked() func() {
	if len(s.subs) == 0 {
		return func() {}
	}
	snap := s.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(snap)
		}
	}
}

// ─── Writes ───────────────────────────────────────────────────────────────────

// Feed feeds pet id and waits for confirmation.
func (s *Synchronizer) Feed(ctx context.Context, id string) (*types.Receipt, error) {
	n, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.write(ctx, "feed", func(f *contract.Facade) (*types.Transaction, error) {
		return f.FeedPet(ctx, n)
	})
}

// Play plays with pet id and waits for confirmation.
func (s *Synchronizer) Play(ctx context.Context, id string) (*types.Receipt, error) {
	n, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	return s.write(ctx, "play", func(f *contract.Facade) (*types.Transaction, error) {
		return f.PlayWithPet(ctx, n)
	})
}

// Mint mints a pet called name, paying the contract's mint price.
func (s *Synchronizer) Mint(ctx context.Context, name string) (*types.Receipt, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	return s.write(ctx, "mint", func(f *contract.Facade) (*types.Transaction, error) {
		return f.MintPet(ctx, name)
	})
}

// write submits a transaction, waits for its receipt and refetches whatever
// the outcome. The refetch outlives ctx: a wait that was cancelled or timed
// out still reconciles with the chain. A failing write check sends nothing
// and skips the refetch.
func (s *Synchronizer) write(ctx context.Context, action string, submit func(*contract.Facade) (*types.Transaction, error)) (receipt *types.Receipt, err error) {
	if s.check != nil {
		if err := s.check(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", action, err)
		}
	}
	b := s.source()
	defer func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ReconcileTimeout)
		defer cancel()
		if ferr := s.Fetch(rctx); ferr != nil && err == nil {
			err = fmt.Errorf("refreshing pets: %w", ferr)
		}
	}()

	tx, err := submit(b.Facade)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	s.log.Info("waiting for confirmation", zap.String("action", action), zap.String("tx", tx.Hash().Hex()))
	receipt, err = b.Facade.WaitMined(ctx, tx)
	if err != nil {
		return receipt, fmt.Errorf("%s: %w", action, err)
	}
	return receipt, nil
}
