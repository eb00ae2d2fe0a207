package txn

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"eve.evalgo.org/docstore"
	"eve.evalgo.org/docstore/collection"
	"eve.evalgo.org/docstore/store"
)

// statsReporter is satisfied by both transaction variants.
type statsReporter interface {
	Stats() (writes, totalReads, atomicReads int)
}

const maxCommitAttempts = 10

// RunOptions configures one Runner.Run call.
type RunOptions struct {
	// ReadOnly forces the read-only/read-write choice. When nil, the
	// choice is inferred from Participants: if any named collection is
	// Virtual, a ReadOnlyTransaction is used.
	ReadOnly *bool
	// Participants lists the collection names the caller expects this
	// transaction to touch, used both for the read-only inference above
	// and to serialize writers against any participating Flat collection.
	Participants []string
}

// Runner chooses between ReadWriteTransaction and ReadOnlyTransaction,
// retries on store contention, and serializes writers against Flat
// collections one at a time through a single-slot FIFO per collection.
type Runner struct {
	binding     store.Binding
	collections Collections
	logger      logrus.FieldLogger

	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewRunner builds a Runner bound to binding and the already-bound
// collections collections resolves writes against. A nil logger disables
// the per-commit observability log.
func NewRunner(binding store.Binding, collections Collections, logger logrus.FieldLogger) *Runner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runner{binding: binding, collections: collections, logger: logger, locks: make(map[string]chan struct{})}
}

// Run invokes fn once against a fresh transaction, retrying the whole
// attempt on store contention.
func (r *Runner) Run(ctx context.Context, opts RunOptions, fn func(ctx context.Context, tx docstore.Transaction) error) error {
	flatNames := r.flatParticipants(opts.Participants)
	release := r.acquireFlatSlots(ctx, flatNames)
	defer release()

	readOnly := r.resolveReadOnly(opts)

	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		var err error
		var stats statsReporter

		if readOnly {
			ro := NewReadOnlyTransaction(r.binding, r.collections)
			stats = ro
			if err = fn(ctx, ro); err == nil {
				err = ro.Commit(ctx)
			}
		} else {
			err = r.binding.RunTransaction(ctx, func(ctx context.Context, storeTx store.Tx) error {
				rw := NewReadWriteTransaction(storeTx, r.collections)
				stats = rw
				if err := fn(ctx, rw); err != nil {
					return err
				}
				return rw.Commit(ctx)
			})
		}

		if stats != nil {
			writes, totalReads, atomicReads := stats.Stats()
			r.logger.WithFields(logrus.Fields{
				"attempt":      attempt,
				"writes":       writes,
				"reads":        totalReads,
				"atomic_reads": atomicReads,
				"read_only":    readOnly,
			}).Debug("docstore: transaction attempt")
		}

		if err == nil {
			return nil
		}
		if !isContention(err) {
			return err
		}

		r.resetFlatMemos(flatNames)
		if r.binding.IsEmulator() {
			if sleepErr := sleepJitter(ctx); sleepErr != nil {
				return sleepErr
			}
		}
	}
	return errors.New("txn: exceeded maximum commit attempts under contention")
}

// resolveReadOnly picks a ReadOnlyTransaction whenever any participating
// collection is Virtual, or the caller asked for one explicitly.
func (r *Runner) resolveReadOnly(opts RunOptions) bool {
	if opts.ReadOnly != nil {
		return *opts.ReadOnly
	}
	for _, name := range opts.Participants {
		if c, ok := r.collections.Get(name); ok {
			if _, isVirtual := c.(*collection.VirtualCollection); isVirtual {
				return true
			}
		}
	}
	return false
}

func (r *Runner) flatParticipants(names []string) []string {
	var flat []string
	for _, name := range names {
		c, ok := r.collections.Get(name)
		if !ok {
			continue
		}
		if _, isFlat := c.(*collection.FlatCollection); isFlat {
			flat = append(flat, name)
		}
	}
	sort.Strings(flat) // stable lock ordering avoids deadlock across runners
	return flat
}

// acquireFlatSlots serializes writers one at a time per Flat collection
// name, since every row of a Flat collection shares one document and
// concurrent read-merge-writes against it would otherwise race.
func (r *Runner) acquireFlatSlots(ctx context.Context, names []string) func() {
	if len(names) == 0 {
		return func() {}
	}
	slots := make([]chan struct{}, len(names))
	for i, name := range names {
		slots[i] = r.slotFor(name)
	}
	var acquired []chan struct{}
	for _, slot := range slots {
		select {
		case slot <- struct{}{}:
			acquired = append(acquired, slot)
		case <-ctx.Done():
		}
	}
	return func() {
		for _, slot := range acquired {
			select {
			case <-slot:
			default:
			}
		}
	}
}

func (r *Runner) slotFor(name string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.locks[name]
	if !ok {
		slot = make(chan struct{}, 1)
		r.locks[name] = slot
	}
	return slot
}

func (r *Runner) resetFlatMemos(names []string) {
	for _, name := range names {
		if c, ok := r.collections.Get(name); ok {
			if flat, isFlat := c.(*collection.FlatCollection); isFlat {
				flat.ResetEnsure()
			}
		}
	}
}

// isContention reports whether err (or something it wraps) is a
// *docstore.TransactionContention.
func isContention(err error) bool {
	var contention *docstore.TransactionContention
	return errors.As(err, &contention)
}

// sleepJitter backs off a random duration between 0 and 5 seconds,
// emulator-only: production CouchDB conflicts are rare enough that
// retrying immediately is fine, but a local emulator under test can
// thrash without spreading retries out.
func sleepJitter(ctx context.Context) error {
	d := time.Duration(rand.Int63n(int64(5 * time.Second)))
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
