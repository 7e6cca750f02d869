package observability

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"casino/events"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
)

// MetricsConfig selects and tunes the metric exporter
type MetricsConfig struct {
	Exporter       string
	OTLPEndpoint   string
	ServiceName    string
	Environment    string
	ExportInterval time.Duration
}

// MetricsProvider records ledger activity from committed bus events
type MetricsProvider struct {
	mu            sync.RWMutex
	meterProvider *sdkmetric.MeterProvider
	enabled       bool

	// Metric instruments
	gamesPlayedCounter         metric.Int64Counter
	wagerVolumeCounter         metric.Float64Counter
	balanceTransactionsCounter metric.Int64Counter
	dailyClaimsCounter         metric.Int64Counter
	dailyRewardCounter         metric.Float64Counter
}

// NewMetricsProvider builds a provider for the configured exporter. The
// "none" exporter returns a provider that drops every recording.
func NewMetricsProvider(ctx context.Context, cfg MetricsConfig) (*MetricsProvider, error) {
	var exporter sdkmetric.Exporter
	var err error

	switch cfg.Exporter {
	case "", ExporterNone:
		log.Info("Metrics export disabled")
		return &MetricsProvider{}, nil

	case ExporterConsole:
		exporter, err = stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case ExporterOTLP:
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(dialCtx,
			otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
			otlpmetricgrpc.WithDialOption(grpc.WithUserAgent(cfg.ServiceName)),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", cfg.OTLPEndpoint).Info("Using OTLP metric exporter")

	default:
		return nil, fmt.Errorf("unknown metrics exporter: %s", cfg.Exporter)
	}

	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))
	mp, err := newProvider(sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader)))
	if err != nil {
		return nil, err
	}

	otel.SetMeterProvider(mp.meterProvider)
	log.Info("Metrics provider initialized successfully")
	return mp, nil
}

// NewMetricsProviderWithReader wires instruments to a caller-supplied reader
func NewMetricsProviderWithReader(reader sdkmetric.Reader) (*MetricsProvider, error) {
	return newProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
}

func newProvider(meterProvider *sdkmetric.MeterProvider) (*MetricsProvider, error) {
	mp := &MetricsProvider{meterProvider: meterProvider, enabled: true}
	if err := mp.createInstruments(meterProvider.Meter(MetricPrefix)); err != nil {
		_ = meterProvider.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to create instruments: %w", err)
	}
	return mp, nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments(meter metric.Meter) error {
	var err error

	mp.gamesPlayedCounter, err = meter.Int64Counter(
		GamesPlayedTotal,
		metric.WithDescription("Total number of settled games"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create games played counter: %w", err)
	}

	mp.wagerVolumeCounter, err = meter.Float64Counter(
		WagerVolume,
		metric.WithDescription("Total currency wagered on settled games"),
		metric.WithUnit("{coin}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create wager volume counter: %w", err)
	}

	mp.balanceTransactionsCounter, err = meter.Int64Counter(
		BalanceTransactionsTotal,
		metric.WithDescription("Total number of committed balance changes"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create balance transactions counter: %w", err)
	}

	mp.dailyClaimsCounter, err = meter.Int64Counter(
		DailyClaimsTotal,
		metric.WithDescription("Total number of daily reward claims"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create daily claims counter: %w", err)
	}

	mp.dailyRewardCounter, err = meter.Float64Counter(
		DailyRewardTotal,
		metric.WithDescription("Total currency paid out by daily rewards"),
		metric.WithUnit("{coin}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create daily reward counter: %w", err)
	}

	return nil
}

// Attach subscribes the provider to every event type on the bus
func (mp *MetricsProvider) Attach(bus *events.Bus) {
	for _, eventType := range events.AllEventTypes {
		bus.Subscribe(eventType, mp.Handle)
	}
}

// Handle records one committed event
func (mp *MetricsProvider) Handle(ctx context.Context, event events.Event) {
	if !mp.isEnabled() {
		return
	}

	switch e := event.(type) {
	case events.GamePlayedEvent:
		result := "loss"
		if e.NetGain.IsPositive() {
			result = "win"
		}
		mp.gamesPlayedCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String(LabelGame, e.Game.String()),
			attribute.String(LabelResult, result),
		))
		mp.wagerVolumeCounter.Add(ctx, e.Wager.InexactFloat64(), metric.WithAttributes(
			attribute.String(LabelGame, e.Game.String()),
		))

	case events.BalanceChangeEvent:
		mp.balanceTransactionsCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String(LabelType, string(e.TransactionType)),
		))

	case events.DailyClaimedEvent:
		late := attribute.String(LabelLate, strconv.FormatBool(e.Late))
		mp.dailyClaimsCounter.Add(ctx, 1, metric.WithAttributes(late))
		mp.dailyRewardCounter.Add(ctx, e.Reward.InexactFloat64(), metric.WithAttributes(late))
	}
}

// Shutdown flushes and stops the exporter
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.enabled = false
	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.enabled
}
