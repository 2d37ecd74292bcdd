package weather

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yegors/metar-reader/internal/metar"
	"github.com/yegors/metar-reader/internal/observability"
	"github.com/yegors/metar-reader/internal/storage/sqlite"
	"github.com/yegors/metar-reader/pkg/logger"
)

// HistoryStore persists looked-up reports
type HistoryStore interface {
	StoreReport(record *sqlite.ReportRecord) (int64, error)
	GetHistory(airportCode string, limit int) ([]*sqlite.ReportRecord, error)
	GetLatest(airportCode string) (*sqlite.ReportRecord, error)
}

// Publisher forwards decoded lookups to downstream consumers
type Publisher interface {
	Publish(ctx context.Context, lookup *Lookup) error
}

// Broadcaster pushes live updates to connected clients
type Broadcaster interface {
	PublishUpdate(airportCode string, payload any)
}

// ErrHistoryUnavailable is returned by History when no store is configured
var ErrHistoryUnavailable = errors.New("report history is not enabled")

// ErrNoStoredReport is returned by Latest when nothing is stored for an airport
var ErrNoStoredReport = errors.New("no stored report for this airport code")

const defaultPublishTimeout = 10 * time.Second

// Service looks up, decodes and distributes METAR reports
type Service struct {
	config  WeatherConfig
	fetcher Fetcher
	decoder *metar.Decoder
	cache   ReportCache
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *logger.Logger

	history        HistoryStore
	publisher      Publisher
	broadcaster    Broadcaster
	publishTimeout time.Duration
	publishes      sync.WaitGroup

	// Service lifecycle
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.RWMutex
}

// NewService creates a new weather service
func NewService(config WeatherConfig, fetcher Fetcher, cache ReportCache, clock clockwork.Clock, metrics *observability.Metrics, logger *logger.Logger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		config:         config,
		fetcher:        fetcher,
		decoder:        metar.NewDecoder(),
		cache:          cache,
		clock:          clock,
		metrics:        metrics,
		logger:         logger.Named("weather-service"),
		publishTimeout: defaultPublishTimeout,
	}
}

// SetHistoryStore enables persisting lookups
func (s *Service) SetHistoryStore(store HistoryStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = store
}

// SetPublisher enables publishing lookups
func (s *Service) SetPublisher(publisher Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publisher = publisher
}

// SetBroadcaster sets where watch list updates are sent
func (s *Service) SetBroadcaster(broadcaster Broadcaster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcaster = broadcaster
}

// Lookup validates an airport code, fetches (or reuses a cached) report and decodes it.
// Errors are *ValidationError, *FetchError or metar.ErrEmptyReport.
func (s *Service) Lookup(ctx context.Context, input string) (*Lookup, error) {
	code, err := NormalizeAirportCode(input)
	if err != nil {
		s.metrics.LookupsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	return s.lookup(ctx, code, true)
}

// Refresh drops any cached report for an airport and fetches a new one. The
// cached report stays dropped if the fetch fails.
func (s *Service) Refresh(ctx context.Context, input string) (*Lookup, error) {
	code, err := NormalizeAirportCode(input)
	if err != nil {
		s.metrics.LookupsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	return s.refresh(ctx, code)
}

func (s *Service) refresh(ctx context.Context, code string) (*Lookup, error) {
	s.cache.Invalidate(ctx, code)
	return s.lookup(ctx, code, false)
}

func (s *Service) lookup(ctx context.Context, code string, useCache bool) (*Lookup, error) {
	raw, cached := "", false
	if useCache {
		raw, cached = s.cache.Get(ctx, code)
		if cached {
			s.metrics.CacheLookups.WithLabelValues("hit").Inc()
		} else {
			s.metrics.CacheLookups.WithLabelValues("miss").Inc()
		}
	}

	if !cached {
		fetched, err := s.fetcher.FetchMETAR(ctx, code)
		if err != nil {
			s.metrics.LookupsTotal.WithLabelValues("fetch_error").Inc()
			return nil, err
		}
		raw = fetched
	}

	report, err := s.DecodeRaw(raw)
	if err != nil {
		s.metrics.LookupsTotal.WithLabelValues("decode_error").Inc()
		return nil, err
	}

	result := &Lookup{
		AirportCode: code,
		RawMETAR:    raw,
		Decoded:     report,
		FetchedAt:   s.clock.Now().UTC(),
		Cached:      cached,
	}

	if !cached {
		s.cache.Set(ctx, code, raw)
		s.record(ctx, result)
	}

	s.metrics.LookupsTotal.WithLabelValues("ok").Inc()
	s.logger.Debug("METAR lookup completed",
		logger.String("airport", code),
		logger.Bool("cached", cached))
	return result, nil
}

// record stores a freshly fetched lookup and publishes it in the background.
// Failures are logged only.
func (s *Service) record(ctx context.Context, result *Lookup) {
	s.mu.RLock()
	history, publisher := s.history, s.publisher
	s.mu.RUnlock()

	if history != nil {
		_, err := history.StoreReport(&sqlite.ReportRecord{
			AirportCode: result.AirportCode,
			RawText:     result.RawMETAR,
			Decoded:     result.Decoded,
			FetchedAt:   result.FetchedAt,
		})
		if err != nil {
			s.logger.Error("Failed to store METAR report",
				logger.String("airport", result.AirportCode),
				logger.Error(err))
		}
	}

	if publisher != nil {
		s.publishAsync(ctx, publisher, result)
	}
}

// publishAsync publishes off the lookup path. The publish outlives the
// caller's request but is bounded by publishTimeout.
func (s *Service) publishAsync(ctx context.Context, publisher Publisher, result *Lookup) {
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)

	s.publishes.Add(1)
	go func() {
		defer s.publishes.Done()
		defer cancel()

		if err := publisher.Publish(publishCtx, result); err != nil {
			s.logger.Error("Failed to publish METAR report",
				logger.String("airport", result.AirportCode),
				logger.Error(err))
		}
	}()
}

// DecodeRaw decodes user-supplied report text without fetching
func (s *Service) DecodeRaw(raw string) (*metar.Report, error) {
	report, err := s.decoder.Decode(raw)
	if err != nil {
		s.metrics.DecodesTotal.WithLabelValues("empty").Inc()
		return nil, err
	}
	s.metrics.DecodesTotal.WithLabelValues("ok").Inc()
	return report, nil
}

// History returns stored lookups for an airport, newest first
func (s *Service) History(_ context.Context, input string, limit int) ([]*sqlite.ReportRecord, error) {
	code, err := NormalizeAirportCode(input)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	history := s.history
	s.mu.RUnlock()

	if history == nil {
		return nil, ErrHistoryUnavailable
	}

	records, err := history.GetHistory(code, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for %s: %w", code, err)
	}
	return records, nil
}

// Latest returns the newest stored lookup for an airport
func (s *Service) Latest(_ context.Context, input string) (*sqlite.ReportRecord, error) {
	code, err := NormalizeAirportCode(input)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	history := s.history
	s.mu.RUnlock()

	if history == nil {
		return nil, ErrHistoryUnavailable
	}

	record, err := history.GetLatest(code)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest report for %s: %w", code, err)
	}
	if record == nil {
		return nil, ErrNoStoredReport
	}
	return record, nil
}

// CacheStats returns report cache statistics
func (s *Service) CacheStats() CacheStats {
	return s.cache.Stats()
}

// WatchAirports returns the airports refreshed in the background
func (s *Service) WatchAirports() []string {
	return append([]string(nil), s.config.WatchAirports...)
}

// Start begins refreshing the watch list in the background. It does nothing
// when the watch list is empty or the service is already running.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if len(s.config.WatchAirports) == 0 {
		s.logger.Info("No watch airports configured, background refresh disabled")
		return nil
	}
	if s.config.RefreshIntervalMinutes <= 0 {
		return fmt.Errorf("refresh_interval_minutes must be greater than 0")
	}

	s.logger.Info("Starting weather service",
		logger.Any("watch_airports", s.config.WatchAirports),
		logger.Int("refresh_interval_minutes", s.config.RefreshIntervalMinutes))

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.backgroundRefresh(ctx)
	}()

	s.started = true
	return nil
}

// Stop shuts down the background refresh and waits for in-flight publishes
func (s *Service) Stop() error {
	s.mu.Lock()
	running := s.started
	if running {
		s.logger.Info("Stopping weather service")
		s.cancel()
		s.started = false
	}
	s.mu.Unlock()

	// the refresh loop takes mu.RLock, so wait outside the lock
	s.wg.Wait()
	s.publishes.Wait()

	if running {
		s.logger.Info("Weather service stopped")
	}
	return nil
}

// IsStarted returns whether the background refresh is running
func (s *Service) IsStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// RefreshNow refreshes every watched airport immediately
func (s *Service) RefreshNow(ctx context.Context) {
	s.logger.Info("Manual weather refresh triggered")
	s.refreshWatchList(ctx)
}

// backgroundRefresh refreshes the watch list once immediately and then on every tick
func (s *Service) backgroundRefresh(ctx context.Context) {
	refreshInterval := s.config.RefreshInterval()
	ticker := s.clock.NewTicker(refreshInterval)
	defer ticker.Stop()

	s.logger.Info("Background weather refresh started",
		logger.Duration("interval", refreshInterval))

	s.refreshWatchList(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Background weather refresh stopped")
			return
		case <-ticker.Chan():
			s.logger.Debug("Periodic weather refresh triggered")
			s.refreshWatchList(ctx)
		}
	}
}

func (s *Service) refreshWatchList(ctx context.Context) {
	startTime := s.clock.Now()
	failures := 0

	for _, input := range s.config.WatchAirports {
		if ctx.Err() != nil {
			return
		}

		code, err := NormalizeAirportCode(input)
		if err != nil {
			failures++
			continue
		}

		result, err := s.refresh(ctx, code)
		if err != nil {
			failures++
			s.logger.Warn("Failed to refresh watched airport",
				logger.String("airport", code),
				logger.Error(err))
			continue
		}
		s.broadcast(result)
	}

	s.logger.Info("Watch list refresh completed",
		logger.Int("airports", len(s.config.WatchAirports)),
		logger.Int("failures", failures),
		logger.Duration("duration", s.clock.Since(startTime)))
}

func (s *Service) broadcast(result *Lookup) {
	s.mu.RLock()
	broadcaster := s.broadcaster
	s.mu.RUnlock()

	if broadcaster == nil {
		return
	}
	broadcaster.PublishUpdate(result.AirportCode, result)
}
