package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"portfolio-dashboard/internal/aggregation"
	"portfolio-dashboard/internal/backend"
	"portfolio-dashboard/internal/cache"
	"portfolio-dashboard/internal/config"
	"portfolio-dashboard/internal/models"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Resource names one backend collection the dashboard loads
type Resource string

const (
	ResourceProfile     Resource = "profile"
	ResourceTrades      Resource = "trades"
	ResourceDeposits    Resource = "deposits"
	ResourceWithdrawals Resource = "withdrawals"
	ResourceIdentity    Resource = "identity"
)

// AllResources is every resource a full snapshot needs
var AllResources = []Resource{ResourceProfile, ResourceTrades, ResourceDeposits, ResourceWithdrawals, ResourceIdentity}

// Warning describes a resource that could not be refreshed
type Warning struct {
	Resource Resource `json:"resource"`
	Message  string   `json:"message"`
	// Stale is set when the previous good value was used instead
	Stale bool `json:"stale"`
}

// ResourceError wraps the failure of a single resource in a batch
type ResourceError struct {
	Resource Resource
	Err      error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Resource, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// Batch is the allSettled outcome of loading several resources
type Batch struct {
	Snapshot aggregation.Snapshot
	Warnings []Warning
	// Err aggregates every failed resource, nil when all succeeded
	Err error
	loaded map[Resource]bool
}

// Loaded reports whether resource ended up in the snapshot, fresh or stale
func (b *Batch) Loaded(r Resource) bool {
	return b.loaded[r]
}

// PortfolioView is the stats widget payload
type PortfolioView struct {
	Stats    models.PortfolioStats `json:"stats"`
	Warnings []Warning             `json:"warnings,omitempty"`
}

// AllocationView is the allocation chart payload
type AllocationView struct {
	Entries  []models.AllocationEntry `json:"entries"`
	Warnings []Warning                `json:"warnings,omitempty"`
}

// AchievementsView is the achievements widget payload
type AchievementsView struct {
	Achievements []models.Achievement `json:"achievements"`
	Unlocked     int                  `json:"unlocked"`
	Warnings     []Warning            `json:"warnings,omitempty"`
}

// ActivityView is the recent activity feed payload
type ActivityView struct {
	Activity []models.Activity `json:"activity"`
	Warnings []Warning         `json:"warnings,omitempty"`
}

// SummaryView bundles every widget computed from one snapshot
type SummaryView struct {
	Stats        models.PortfolioStats    `json:"stats"`
	Allocation   []models.AllocationEntry `json:"allocation"`
	Achievements []models.Achievement     `json:"achievements"`
	Activity     []models.Activity        `json:"activity"`
	Identity     *models.IdentityRecord   `json:"identity,omitempty"`
	GeneratedAt  time.Time                `json:"generated_at"`
	Warnings     []Warning                `json:"warnings,omitempty"`
}

// DashboardService loads backend resources through the shared query cache
// and turns them into widget payloads
type DashboardService struct {
	cache         *cache.QueryCache
	rules         []aggregation.AchievementRule
	activityLimit int
	maxParallel   int
	now           func() time.Time
	logger        zerolog.Logger
}

// NewDashboardService creates a dashboard service
func NewDashboardService(qc *cache.QueryCache, cfg config.DashboardConfig, logger zerolog.Logger) *DashboardService {
	maxParallel := cfg.MaxParallelFetches
	if maxParallel <= 0 {
		maxParallel = len(AllResources)
	}
	return &DashboardService{
		cache:         qc,
		rules:         aggregation.DefaultAchievementRules,
		activityLimit: cfg.ActivityLimit,
		maxParallel:   maxParallel,
		now:           time.Now,
		logger:        logger.With().Str("component", "dashboard_service").Logger(),
	}
}

// WithAchievementRules replaces the achievement table
func (s *DashboardService) WithAchievementRules(rules []aggregation.AchievementRule) (*DashboardService, error) {
	if err := aggregation.ValidateRules(rules); err != nil {
		return nil, fmt.Errorf("invalid achievement rules: %w", err)
	}
	s.rules = rules
	return s, nil
}

// Now returns the service clock
func (s *DashboardService) Now() time.Time {
	return s.now()
}

func load[T any](ctx context.Context, s *DashboardService, owner string, r Resource, fetch func(context.Context) (T, error), assign func(T)) (bool, error) {
	value, err := cache.Fetch(ctx, s.cache, owner, string(r), fetch)
	if err == nil {
		assign(value)
		return false, nil
	}
	// a dead session must not be papered over with old data
	if errors.Is(err, backend.ErrUnauthorized) {
		return false, err
	}
	if stale, ok := cache.LastGood[T](ctx, s.cache, owner, string(r)); ok {
		assign(stale)
		return true, err
	}
	return false, err
}

// Load fetches resources in parallel and waits for all of them. Failed
// resources fall back to their last good value when one exists and are
// reported in Warnings and Err.
func (s *DashboardService) Load(ctx context.Context, owner string, reader AccountReader, resources ...Resource) (*Batch, error) {
	if len(resources) == 0 {
		resources = AllResources
	}

	batch := &Batch{loaded: make(map[Resource]bool, len(resources))}
	var (
		mu     sync.Mutex
		result *multierror.Error
	)

	record := func(r Resource, stale bool, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err == nil {
			batch.loaded[r] = true
			return
		}
		batch.loaded[r] = stale
		result = multierror.Append(result, &ResourceError{Resource: r, Err: err})
		batch.Warnings = append(batch.Warnings, Warning{Resource: r, Message: err.Error(), Stale: stale})
	}

	var g errgroup.Group
	g.SetLimit(s.maxParallel)
	for _, r := range resources {
		r := r
		g.Go(func() error {
			var (
				stale bool
				err   error
			)
			switch r {
			case ResourceProfile:
				stale, err = load(ctx, s, owner, r, reader.Profile, func(v *models.Profile) {
					mu.Lock()
					batch.Snapshot.Profile = v
					mu.Unlock()
				})
			case ResourceTrades:
				stale, err = load(ctx, s, owner, r, reader.Trades, func(v []models.Trade) {
					mu.Lock()
					batch.Snapshot.Trades = v
					mu.Unlock()
				})
			case ResourceDeposits:
				stale, err = load(ctx, s, owner, r, reader.Deposits, func(v []models.Deposit) {
					mu.Lock()
					batch.Snapshot.Deposits = v
					mu.Unlock()
				})
			case ResourceWithdrawals:
				stale, err = load(ctx, s, owner, r, reader.Withdrawals, func(v []models.Withdrawal) {
					mu.Lock()
					batch.Snapshot.Withdrawals = v
					mu.Unlock()
				})
			case ResourceIdentity:
				stale, err = load(ctx, s, owner, r, reader.IdentityStatus, func(v *models.IdentityRecord) {
					mu.Lock()
					batch.Snapshot.Identity = v
					mu.Unlock()
				})
			default:
				err = fmt.Errorf("%w: %s", ErrUnknownResource, r)
			}
			record(r, stale, err)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(batch.Warnings, func(i, j int) bool { return batch.Warnings[i].Resource < batch.Warnings[j].Resource })
	batch.Err = result.ErrorOrNil()

	if batch.Err != nil {
		s.logger.Warn().Err(batch.Err).Str("owner", owner).Int("failed", len(batch.Warnings)).Msg("dashboard batch partially failed")
		if errors.Is(batch.Err, backend.ErrUnauthorized) {
			return nil, backend.ErrUnauthorized
		}
		if errors.Is(batch.Err, ErrUnknownResource) {
			return nil, batch.Err
		}
		// nothing usable came back
		if !anyLoaded(batch, resources) {
			return nil, batch.Err
		}
	}
	return batch, nil
}

func anyLoaded(b *Batch, resources []Resource) bool {
	for _, r := range resources {
		if b.loaded[r] {
			return true
		}
	}
	return false
}

// Portfolio computes the portfolio stats widget
func (s *DashboardService) Portfolio(ctx context.Context, owner string, reader AccountReader) (*PortfolioView, error) {
	batch, err := s.Load(ctx, owner, reader, ResourceProfile, ResourceTrades, ResourceDeposits, ResourceWithdrawals)
	if err != nil {
		return nil, err
	}
	return &PortfolioView{
		Stats:    aggregation.PortfolioStats(batch.Snapshot, s.now()),
		Warnings: batch.Warnings,
	}, nil
}

// Allocation computes the asset allocation chart
func (s *DashboardService) Allocation(ctx context.Context, owner string, reader AccountReader) (*AllocationView, error) {
	batch, err := s.Load(ctx, owner, reader, ResourceProfile, ResourceTrades)
	if err != nil {
		return nil, err
	}
	return &AllocationView{
		Entries:  aggregation.Allocation(batch.Snapshot.Trades, batch.Snapshot.Balance()),
		Warnings: batch.Warnings,
	}, nil
}

// Achievements evaluates the achievement table
func (s *DashboardService) Achievements(ctx context.Context, owner string, reader AccountReader) (*AchievementsView, error) {
	batch, err := s.Load(ctx, owner, reader, ResourceTrades, ResourceDeposits)
	if err != nil {
		return nil, err
	}
	achievements := aggregation.EvaluateAchievements(s.rules, aggregation.PortfolioStats(batch.Snapshot, s.now()))
	return &AchievementsView{
		Achievements: achievements,
		Unlocked:     countUnlocked(achievements),
		Warnings:     batch.Warnings,
	}, nil
}

// Activity builds the recent activity feed
func (s *DashboardService) Activity(ctx context.Context, owner string, reader AccountReader) (*ActivityView, error) {
	batch, err := s.Load(ctx, owner, reader, ResourceTrades, ResourceDeposits, ResourceWithdrawals)
	if err != nil {
		return nil, err
	}
	return &ActivityView{
		Activity: aggregation.RecentActivity(batch.Snapshot, s.activityLimit),
		Warnings: batch.Warnings,
	}, nil
}

// Summary computes every widget from a single snapshot
func (s *DashboardService) Summary(ctx context.Context, owner string, reader AccountReader) (*SummaryView, error) {
	batch, err := s.Load(ctx, owner, reader, AllResources...)
	if err != nil {
		return nil, err
	}
	return s.summarize(batch), nil
}

func (s *DashboardService) summarize(batch *Batch) *SummaryView {
	now := s.now()
	stats := aggregation.PortfolioStats(batch.Snapshot, now)
	return &SummaryView{
		Stats:        stats,
		Allocation:   aggregation.Allocation(batch.Snapshot.Trades, batch.Snapshot.Balance()),
		Achievements: aggregation.EvaluateAchievements(s.rules, stats),
		Activity:     aggregation.RecentActivity(batch.Snapshot, s.activityLimit),
		Identity:     batch.Snapshot.Identity,
		GeneratedAt:  now,
		Warnings:     batch.Warnings,
	}
}

// Invalidate drops the fresh cache entries of resources for owner
func (s *DashboardService) Invalidate(ctx context.Context, owner string, resources ...Resource) {
	names := make([]string, len(resources))
	for i, r := range resources {
		names[i] = string(r)
	}
	if err := s.cache.Invalidate(ctx, owner, names...); err != nil {
		s.logger.Warn().Err(err).Str("owner", owner).Msg("cache invalidation failed")
	}
}

// Forget drops everything cached for owner, used when the session expires
func (s *DashboardService) Forget(ctx context.Context, owner string) {
	names := make([]string, len(AllResources))
	for i, r := range AllResources {
		names[i] = string(r)
	}
	if err := s.cache.Purge(ctx, owner, names...); err != nil {
		s.logger.Warn().Err(err).Str("owner", owner).Msg("cache purge failed")
	}
}

func countUnlocked(list []models.Achievement) int {
	n := 0
	for _, a := range list {
		if a.Unlocked {
			n++
		}
	}
	return n
}
