package dualstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/unsentboard/unsent-backend/internal/common"
	"github.com/unsentboard/unsent-backend/internal/domain"
	"github.com/unsentboard/unsent-backend/internal/repository"
	"github.com/unsentboard/unsent-backend/pkg/logger"
)

// Gateway presents two independent backing stores as one logical store with
// higher write availability and read completeness. There is no cross-store
// transaction; a single insert lands in exactly one store or in neither.
// The gateway holds no shared mutable state, so it stays correct under
// multi-process deployment.
type Gateway struct {
	a       repository.MemoryRepository
	b       repository.MemoryRepository
	timeout time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

// FetchQuery describes a read fan-in. The repository filter is pushed down
// to each store; search and ordering are applied in-process after the union,
// so the same semantics hold regardless of which store holds a record.
type FetchQuery struct {
	Filter  repository.MemoryFilter
	Search  string
	OrderBy string // only "created_at" is supported
	Asc     bool
}

// Health reports per-store probe results
type Health struct {
	StoreA error
	StoreB error
}

// NewGateway creates a Gateway over the two store repositories.
// timeout bounds each per-store call so one slow store cannot indefinitely
// delay the failover path.
func NewGateway(a, b repository.MemoryRepository, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Gateway{
		a:       a,
		b:       b,
		timeout: timeout,
		now:     time.Now,
		log:     logger.WithComponent("dualstore"),
	}
}

// pick returns the primary and secondary stores for a write. Placement
// alternates by current-time parity rather than an in-memory counter, so it
// survives process restarts without persisted state.
func (g *Gateway) pick(prefer string) (repository.MemoryRepository, repository.MemoryRepository) {
	switch prefer {
	case g.a.Label():
		return g.a, g.b
	case g.b.Label():
		return g.b, g.a
	}
	if g.now().UnixMilli()%2 == 0 {
		return g.a, g.b
	}
	return g.b, g.a
}

// Insert writes the memory to one store, failing over to the other on any
// primary error. Returns the label of the store that accepted the record.
// prefer may name a store label to override round-robin placement.
func (g *Gateway) Insert(ctx context.Context, m *domain.Memory, prefer string) (string, error) {
	primary, secondary := g.pick(prefer)

	primaryErr := g.withTimeout(ctx, func(c context.Context) error {
		return primary.Insert(c, m)
	})
	if primaryErr == nil {
		insertsTotal.WithLabelValues(primary.Label()).Inc()
		return primary.Label(), nil
	}

	g.log.Warn().Err(primaryErr).
		Str("store", primary.Label()).
		Msg("insert failed on primary store, retrying on secondary")
	failoversTotal.Inc()

	secondaryErr := g.withTimeout(ctx, func(c context.Context) error {
		return secondary.Insert(c, m)
	})
	if secondaryErr == nil {
		insertsTotal.WithLabelValues(secondary.Label()).Inc()
		return secondary.Label(), nil
	}

	return "", fmt.Errorf("%w: store %s: %v; store %s: %v",
		common.ErrBothStoresFailed, primary.Label(), primaryErr, secondary.Label(), secondaryErr)
}

// Fetch issues the same filtered select to both stores concurrently, merges
// the results, applies the search term in-process and sorts pinned-first,
// then by created_at. One store's error degrades the result to the other
// store's rows; only both failing is a hard error.
func (g *Gateway) Fetch(ctx context.Context, q FetchQuery) ([]domain.Memory, error) {
	resA, errA, resB, errB := g.fanOut(ctx, q.Filter)

	if errA != nil && errB != nil {
		return nil, fmt.Errorf("%w: store %s: %v; store %s: %v",
			common.ErrBothStoresFailed, g.a.Label(), errA, g.b.Label(), errB)
	}
	if errA != nil {
		g.log.Warn().Err(errA).Str("store", g.a.Label()).Msg("fetch degraded to single store")
		partialReadsTotal.WithLabelValues(g.a.Label()).Inc()
	}
	if errB != nil {
		g.log.Warn().Err(errB).Str("store", g.b.Label()).Msg("fetch degraded to single store")
		partialReadsTotal.WithLabelValues(g.b.Label()).Inc()
	}

	merged := append(resA, resB...)
	if q.Search != "" {
		merged = filterBySearch(merged, q.Search)
	}
	g.sortMemories(merged, q)
	return merged, nil
}

func (g *Gateway) fanOut(ctx context.Context, f repository.MemoryFilter) ([]domain.Memory, error, []domain.Memory, error) {
	var (
		resA, resB []domain.Memory
		errA, errB error
	)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		errA = g.withTimeout(ctx, func(c context.Context) error {
			var err error
			resA, err = g.a.Find(c, f)
			return err
		})
	}()
	go func() {
		defer wg.Done()
		errB = g.withTimeout(ctx, func(c context.Context) error {
			var err error
			resB, err = g.b.Find(c, f)
			return err
		})
	}()
	wg.Wait()
	return resA, errA, resB, errB
}

// Update issues the same update to both stores concurrently. The gateway
// does not track placement, so whichever store reports affected rows is
// authoritative. Neither matching is ErrNotFound, distinct from both stores
// erroring.
func (g *Gateway) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	return g.mutateBoth(ctx,
		func(c context.Context, r repository.MemoryRepository) (int64, error) {
			return r.Update(c, id, fields)
		})
}

// Delete removes the memory from whichever store holds it
func (g *Gateway) Delete(ctx context.Context, id string) error {
	return g.mutateBoth(ctx,
		func(c context.Context, r repository.MemoryRepository) (int64, error) {
			return r.Delete(c, id)
		})
}

func (g *Gateway) mutateBoth(ctx context.Context, op func(context.Context, repository.MemoryRepository) (int64, error)) error {
	var (
		rowsA, rowsB int64
		errA, errB   error
	)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		errA = g.withTimeout(ctx, func(c context.Context) error {
			var err error
			rowsA, err = op(c, g.a)
			return err
		})
	}()
	go func() {
		defer wg.Done()
		errB = g.withTimeout(ctx, func(c context.Context) error {
			var err error
			rowsB, err = op(c, g.b)
			return err
		})
	}()
	wg.Wait()

	if rowsA > 0 || rowsB > 0 {
		return nil
	}
	if errA != nil && errB != nil {
		return fmt.Errorf("%w: store %s: %v; store %s: %v",
			common.ErrBothStoresFailed, g.a.Label(), errA, g.b.Label(), errB)
	}
	return common.ErrNotFound
}

// Count returns the sum of per-store filtered counts. One store failing is
// tolerated; its share of the total is simply missing.
func (g *Gateway) Count(ctx context.Context, f repository.MemoryFilter) (int64, error) {
	var (
		countA, countB int64
		errA, errB     error
	)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		errA = g.withTimeout(ctx, func(c context.Context) error {
			var err error
			countA, err = g.a.Count(c, f)
			return err
		})
	}()
	go func() {
		defer wg.Done()
		errB = g.withTimeout(ctx, func(c context.Context) error {
			var err error
			countB, err = g.b.Count(c, f)
			return err
		})
	}()
	wg.Wait()

	if errA != nil && errB != nil {
		return 0, fmt.Errorf("%w: store %s: %v; store %s: %v",
			common.ErrBothStoresFailed, g.a.Label(), errA, g.b.Label(), errB)
	}
	if errA != nil {
		g.log.Warn().Err(errA).Str("store", g.a.Label()).Msg("count degraded to single store")
	}
	if errB != nil {
		g.log.Warn().Err(errB).Str("store", g.b.Label()).Msg("count degraded to single store")
	}
	return countA + countB, nil
}

// CheckHealth probes both stores without mutating state
func (g *Gateway) CheckHealth(ctx context.Context) Health {
	var h Health
	h.StoreA = g.withTimeout(ctx, g.a.Probe)
	h.StoreB = g.withTimeout(ctx, g.b.Probe)
	return h
}

func (g *Gateway) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	c, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return fn(c)
}

func filterBySearch(memories []domain.Memory, term string) []domain.Memory {
	term = strings.ToLower(term)
	out := memories[:0]
	for _, m := range memories {
		if strings.Contains(strings.ToLower(m.Recipient), term) ||
			strings.Contains(strings.ToLower(m.Message), term) ||
			strings.Contains(strings.ToLower(m.Sender), term) ||
			strings.Contains(strings.ToLower(m.Tag), term) {
			out = append(out, m)
		}
	}
	return out
}

// sortMemories orders live-pinned rows first, then by created_at in the
// requested direction (default newest first). Expired pins sort as unpinned.
func (g *Gateway) sortMemories(memories []domain.Memory, q FetchQuery) {
	now := g.now()
	sort.SliceStable(memories, func(i, j int) bool {
		pi, pj := memories[i].IsPinnedNow(now), memories[j].IsPinnedNow(now)
		if pi != pj {
			return pi
		}
		if q.Asc {
			return memories[i].CreatedAt.Before(memories[j].CreatedAt)
		}
		return memories[i].CreatedAt.After(memories[j].CreatedAt)
	})
}
