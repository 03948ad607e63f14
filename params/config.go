package params

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// KappaFallback selects how the liquidity coefficient is computed when two
// consecutive ticks share a timestamp (zero time delta).
type KappaFallback string

const (
	// KappaFallbackOne substitutes kappa = 1 for the tick.
	KappaFallbackOne KappaFallback = "kappa_one"
	// KappaFallbackUnitDelta substitutes a time delta of 1 and divides normally.
	KappaFallbackUnitDelta KappaFallback = "unit_delta"
)

type Strategy struct {
	// RiskAversion (gamma) per instrument; DefaultRiskAversion applies to
	// instruments not listed here.
	RiskAversion        map[string]float64
	DefaultRiskAversion float64

	// PositionLimit per instrument, DefaultPositionLimit otherwise. Quotes are
	// sized so the absolute inventory never exceeds the limit.
	PositionLimit        map[string]int64
	DefaultPositionLimit int64

	// MaxTimestamp normalizes the tick timestamp into the [0, TimeHorizon] range.
	MaxTimestamp int64
	TimeHorizon  float64

	// IncludeTimeDecay keeps the gamma*sigma^2*(T-t) terms in the reservation
	// price and half-spread. Disabling it quotes a pure ln(1+gamma/kappa)/gamma
	// spread around the mid-price.
	IncludeTimeDecay bool

	KappaFallback KappaFallback
	// KappaFloor clamps the liquidity coefficient from below. The resting-volume
	// imbalance can be zero or negative when ask depth exceeds bid depth, which
	// would make ln(1+gamma/kappa) undefined.
	KappaFloor float64

	// RatioWindow caps the rolling trade-price-ratio history used for the
	// volatility estimate.
	RatioWindow int
}

type Data struct {
	Dir        string
	PriceFiles []string
	TradeFiles []string
}

type Store struct {
	Path string
}

type Server struct {
	Enabled bool
	Addr    string
}

type Config struct {
	Strategy Strategy
	Data     Data
	Store    Store
	Server   Server
}

func Default() Config {
	return Config{
		Strategy: Strategy{
			RiskAversion: map[string]float64{
				"AMETHYSTS": 1,
				"STARFRUIT": 1,
			},
			DefaultRiskAversion:  5,
			PositionLimit:        map[string]int64{},
			DefaultPositionLimit: 20,
			MaxTimestamp:         200000,
			TimeHorizon:          1,
			IncludeTimeDecay:     true,
			KappaFallback:        KappaFallbackOne,
			KappaFloor:           1e-6,
			RatioWindow:          512,
		},
		Data: Data{
			Dir:        "data",
			PriceFiles: []string{"prices_round_1_day_0.csv"},
			TradeFiles: []string{"trades_round_1_day_0_nn.csv"},
		},
		Store: Store{
			Path: "data/runs",
		},
		Server: Server{
			Enabled: false,
			Addr:    ":8080",
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if v := os.Getenv("GAMMA_DEFAULT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Strategy.DefaultRiskAversion = f
		}
	}
	if v := os.Getenv("POSITION_LIMIT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Strategy.DefaultPositionLimit = n
		}
	}
	if v := os.Getenv("MAX_TIMESTAMP"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Strategy.MaxTimestamp = n
		}
	}
	if v := os.Getenv("INCLUDE_TIME_DECAY"); v != "" {
		cfg.Strategy.IncludeTimeDecay = v == "true"
	}
	if v := os.Getenv("KAPPA_FALLBACK"); v != "" {
		switch KappaFallback(v) {
		case KappaFallbackOne, KappaFallbackUnitDelta:
			cfg.Strategy.KappaFallback = KappaFallback(v)
		}
	}
	if v := os.Getenv("KAPPA_FLOOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Strategy.KappaFloor = f
		}
	}
	if v := os.Getenv("RATIO_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Strategy.RatioWindow = n
		}
	}

	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	// Comma-separated lists, e.g. "prices_day_-1.csv,prices_day_0.csv"
	if v := os.Getenv("PRICE_FILES"); v != "" {
		cfg.Data.PriceFiles = splitList(v)
	}
	if v := os.Getenv("TRADE_FILES"); v != "" {
		cfg.Data.TradeFiles = splitList(v)
	}

	if v := os.Getenv("STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("SERVE_API"); v != "" {
		cfg.Server.Enabled = v == "true"
	}
	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.Server.Addr = v
	}

	return cfg
}

// Gamma returns the risk aversion coefficient for an instrument.
func (s Strategy) Gamma(instrument string) float64 {
	if g, ok := s.RiskAversion[instrument]; ok {
		return g
	}
	return s.DefaultRiskAversion
}

// Limit returns the position limit for an instrument.
func (s Strategy) Limit(instrument string) int64 {
	if l, ok := s.PositionLimit[instrument]; ok {
		return l
	}
	return s.DefaultPositionLimit
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
