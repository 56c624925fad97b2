package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/domain/route"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/events"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/geocoding"
	"github.com/Kilat-Pet-Delivery/service-route-compare/internal/routing"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const serviceName = "service-route-compare"

// EventProducer publishes CloudEvents. *events.Producer satisfies it.
type EventProducer interface {
	PublishEvent(ctx context.Context, topic, key string, event events.CloudEvent) error
}

// Options bounds each external call made during a comparison.
type Options struct {
	GeocodeTimeout time.Duration
	RouteTimeout   time.Duration
	EventTopic     string
}

// ComparisonService resolves both endpoints and fetches every catalog variant between them.
type ComparisonService struct {
	resolver geocoding.Resolver
	fetcher  routing.Fetcher
	catalog  *route.Catalog
	logRepo  route.ComparisonLogRepository
	producer EventProducer
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

// NewComparisonService creates a new ComparisonService. logRepo and producer may be nil.
func NewComparisonService(
	resolver geocoding.Resolver,
	fetcher routing.Fetcher,
	catalog *route.Catalog,
	logRepo route.ComparisonLogRepository,
	producer EventProducer,
	opts Options,
	logger *zap.Logger,
) *ComparisonService {
	if opts.GeocodeTimeout <= 0 {
		opts.GeocodeTimeout = 5 * time.Second
	}
	if opts.RouteTimeout <= 0 {
		opts.RouteTimeout = 10 * time.Second
	}
	if opts.EventTopic == "" {
		opts.EventTopic = events.DefaultTopic
	}
	return &ComparisonService{
		resolver: resolver,
		fetcher:  fetcher,
		catalog:  catalog,
		logRepo:  logRepo,
		producer: producer,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Catalog returns the variant catalog the service compares.
func (s *ComparisonService) Catalog() *route.Catalog {
	return s.catalog
}

type variantOutcome struct {
	route route.Route
	err   error
}

// Compare runs one comparison between two free-text locations.
//
// Variants whose fetch fails are reported in Failures and left out of Routes.
// If every variant fails the error wraps route.ErrNoRoutes joined with each cause.
func (s *ComparisonService) Compare(ctx context.Context, start, end string) (*route.ComparisonResult, error) {
	startedAt := s.now()
	id := uuid.New()
	tracker := route.NewTracker()

	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	if start == "" || end == "" {
		err := fmt.Errorf("%w: start and end are required", route.ErrInvalidInput)
		s.finish(ctx, id, start, end, route.StatusFailed, nil, err, startedAt)
		return nil, err
	}

	s.advance(tracker, id, route.StatusResolving)
	origin, destination, err := s.resolveEndpoints(ctx, start, end)
	if err != nil {
		s.advance(tracker, id, route.StatusFailed)
		s.finish(ctx, id, start, end, tracker.Status(), nil, err, startedAt)
		return nil, err
	}

	s.advance(tracker, id, route.StatusFetching)
	variants := s.catalog.Variants()
	outcomes := iter.Mapper[route.Variant, variantOutcome]{
		MaxGoroutines: len(variants),
	}.Map(variants, func(v *route.Variant) variantOutcome {
		rt, err := s.fetch(ctx, *v, origin, destination)
		return variantOutcome{route: rt, err: err}
	})

	if err := ctx.Err(); err != nil {
		s.advance(tracker, id, route.StatusFailed)
		s.finish(ctx, id, start, end, tracker.Status(), nil, err, startedAt)
		return nil, err
	}

	result := &route.ComparisonResult{
		ID:                   id,
		Start:                route.ResolvedEndpoint{Raw: start, Coordinate: origin},
		End:                  route.ResolvedEndpoint{Raw: end, Coordinate: destination},
		Routes:               make([]route.Route, 0, len(variants)),
		MapCenter:            route.Midpoint(origin, destination),
		DirectDistanceMeters: route.DistanceMeters(origin, destination),
		CreatedAt:            startedAt.UTC(),
	}
	causes := []error{route.ErrNoRoutes}
	for i, out := range outcomes {
		if out.err != nil {
			result.Failures = append(result.Failures, route.VariantFailure{
				VariantKey:  variants[i].Key,
				DisplayName: variants[i].DisplayName,
				Err:         out.err,
			})
			causes = append(causes, fmt.Errorf("variant %s: %w", variants[i].Key, out.err))
			continue
		}
		result.Routes = append(result.Routes, out.route)
	}

	if len(result.Routes) == 0 {
		err := errors.Join(causes...)
		s.advance(tracker, id, route.StatusFailed)
		s.finish(ctx, id, start, end, tracker.Status(), nil, err, startedAt)
		return nil, err
	}

	s.advance(tracker, id, route.StatusDone)
	s.finish(ctx, id, start, end, tracker.Status(), result, nil, startedAt)
	return result, nil
}

// resolveEndpoints geocodes both addresses concurrently. The first failure cancels the other.
func (s *ComparisonService) resolveEndpoints(ctx context.Context, start, end string) (route.Coordinate, route.Coordinate, error) {
	var origin, destination route.Coordinate

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.resolve(gctx, start)
		if err != nil {
			return fmt.Errorf("start %q: %w", start, err)
		}
		origin = c
		return nil
	})
	g.Go(func() error {
		c, err := s.resolve(gctx, end)
		if err != nil {
			return fmt.Errorf("end %q: %w", end, err)
		}
		destination = c
		return nil
	})

	if err := g.Wait(); err != nil {
		return route.Coordinate{}, route.Coordinate{}, err
	}
	return origin, destination, nil
}

func (s *ComparisonService) resolve(ctx context.Context, address string) (route.Coordinate, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.GeocodeTimeout)
	defer cancel()

	c, err := s.resolver.Resolve(callCtx, address)
	return c, deadlineAsTimeout(ctx, callCtx, err)
}

func (s *ComparisonService) fetch(ctx context.Context, v route.Variant, origin, destination route.Coordinate) (route.Route, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.RouteTimeout)
	defer cancel()

	rt, err := s.fetcher.Fetch(callCtx, v, origin, destination)
	return rt, deadlineAsTimeout(ctx, callCtx, err)
}

// deadlineAsTimeout reports an expired per-call deadline as route.ErrTimeout.
// Cancellation of the parent context is passed through.
func deadlineAsTimeout(parent, call context.Context, err error) error {
	if err == nil || errors.Is(err, route.ErrTimeout) || parent.Err() != nil {
		return err
	}
	if errors.Is(call.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", route.ErrTimeout, err)
	}
	return err
}

func (s *ComparisonService) advance(t *route.Tracker, id uuid.UUID, target route.ComparisonStatus) {
	from := t.Status()
	if err := t.Advance(target); err != nil {
		s.logger.Error("comparison status transition rejected",
			zap.String("comparison_id", id.String()),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("comparison status changed",
		zap.String("comparison_id", id.String()),
		zap.String("from", from.String()),
		zap.String("to", target.String()),
	)
}

// finish records the audit entry and publishes the outcome. Neither can fail the comparison.
func (s *ComparisonService) finish(
	ctx context.Context,
	id uuid.UUID,
	start, end string,
	status route.ComparisonStatus,
	result *route.ComparisonResult,
	cause error,
	startedAt time.Time,
) {
	elapsed := s.now().Sub(startedAt)
	ctx = context.WithoutCancel(ctx)

	entry := &route.ComparisonLogEntry{
		ID:                id,
		StartAddress:      start,
		EndAddress:        end,
		Status:            status,
		VariantsRequested: s.catalog.Len(),
		ElapsedMs:         elapsed.Milliseconds(),
		CreatedAt:         startedAt.UTC(),
	}
	if result != nil {
		entry.RoutesSucceeded = len(result.Routes)
	}
	if cause != nil {
		entry.ErrorCode = route.Code(cause)
		entry.ErrorCause = route.Cause(cause)
	}

	if cause != nil {
		s.logger.Warn("comparison failed",
			zap.String("comparison_id", id.String()),
			zap.String("code", entry.ErrorCode),
			zap.Duration("elapsed", elapsed),
			zap.Error(cause),
		)
	} else {
		s.logger.Info("comparison completed",
			zap.String("comparison_id", id.String()),
			zap.Int("routes", len(result.Routes)),
			zap.Int("failures", len(result.Failures)),
			zap.Duration("elapsed", elapsed),
		)
	}

	if s.logRepo != nil {
		saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := s.logRepo.Save(saveCtx, entry); err != nil {
			s.logger.Error("failed to save comparison log",
				zap.String("comparison_id", id.String()),
				zap.Error(err),
			)
		}
		cancel()
	}

	if result != nil {
		s.publishEvent(ctx, events.ComparisonCompleted, id.String(), completedEvent(entry, result))
		return
	}
	s.publishEvent(ctx, events.ComparisonFailed, id.String(), events.ComparisonFailedEvent{
		ComparisonID: id,
		StartAddress: start,
		EndAddress:   end,
		ErrorCode:    entry.ErrorCode,
		Cause:        entry.ErrorCause,
		ElapsedMs:    entry.ElapsedMs,
		Timestamp:    s.now().UTC(),
	})
}

func completedEvent(entry *route.ComparisonLogEntry, result *route.ComparisonResult) events.ComparisonCompletedEvent {
	evt := events.ComparisonCompletedEvent{
		ComparisonID:         entry.ID,
		StartAddress:         entry.StartAddress,
		EndAddress:           entry.EndAddress,
		Routes:               make([]events.RouteSummary, 0, len(result.Routes)),
		DirectDistanceMeters: result.DirectDistanceMeters,
		ElapsedMs:            entry.ElapsedMs,
		Timestamp:            time.Now().UTC(),
	}
	for _, r := range result.Routes {
		evt.Routes = append(evt.Routes, events.RouteSummary{
			VariantKey:      r.VariantKey,
			DurationSeconds: r.DurationSeconds,
			LengthMeters:    r.LengthMeters,
		})
	}
	for _, f := range result.Failures {
		evt.FailedVariants = append(evt.FailedVariants, f.VariantKey)
	}
	if fastest, ok := result.Fastest(); ok {
		evt.FastestVariant = fastest.VariantKey
	}
	return evt
}

func (s *ComparisonService) publishEvent(ctx context.Context, eventType, key string, data interface{}) {
	if s.producer == nil {
		return
	}

	cloudEvent, err := events.NewCloudEvent(serviceName, eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.producer.PublishEvent(pubCtx, s.opts.EventTopic, key, cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", s.opts.EventTopic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}

// ComparisonStats summarizes the comparison log.
type ComparisonStats struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
}

// ErrLogDisabled is returned by log queries when no repository is configured.
var ErrLogDisabled = errors.New("comparison log is not configured")

// Stats counts logged comparisons by final status.
func (s *ComparisonService) Stats(ctx context.Context) (*ComparisonStats, error) {
	if s.logRepo == nil {
		return nil, ErrLogDisabled
	}
	counts, err := s.logRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count comparisons: %w", err)
	}

	stats := &ComparisonStats{ByStatus: counts}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

// RecentComparisons lists logged comparisons, newest first.
func (s *ComparisonService) RecentComparisons(ctx context.Context, page, limit int) ([]*route.ComparisonLogEntry, int64, error) {
	if s.logRepo == nil {
		return nil, 0, ErrLogDisabled
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.logRepo.ListRecent(ctx, page, limit)
}

// FindComparison returns one logged comparison.
func (s *ComparisonService) FindComparison(ctx context.Context, id uuid.UUID) (*route.ComparisonLogEntry, error) {
	if s.logRepo == nil {
		return nil, ErrLogDisabled
	}
	return s.logRepo.FindByID(ctx, id)
}
