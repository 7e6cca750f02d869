package observability

// Metric name prefixes
const (
	MetricPrefix = "casino"
)

// Metric names
const (
	// Game metrics
	GamesPlayedTotal = MetricPrefix + ".games.played_total"
	WagerVolume      = MetricPrefix + ".games.wager_volume"

	// Balance metrics
	BalanceTransactionsTotal = MetricPrefix + ".balance.transactions_total"

	// Daily reward metrics
	DailyClaimsTotal = MetricPrefix + ".daily.claims_total"
	DailyRewardTotal = MetricPrefix + ".daily.reward_total"
)

// Label keys
const (
	LabelType   = "type"
	LabelGame   = "game"
	LabelResult = "result"
	LabelLate   = "late"
)

// Exporter types
const (
	ExporterNone    = "none"
	ExporterConsole = "console"
	ExporterOTLP    = "otlp"
)
