package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"PerpDesk/internal/domain/models"
	domrepo "PerpDesk/internal/domain/repository"
	pkgch "PerpDesk/pkg/clickhouse"
	applogger "PerpDesk/pkg/logger"
)

const featureColumns = "ts, symbol, mid, mark, ret_1h, ret_4h, atr_1h, spread_bps, imbalance, funding_rate, open_interest, funding_trend, state"

// FeatureSchema returns the DDL for the feature archive in database db.
func FeatureSchema(db string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, db),
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s.market_states (
            ts            DateTime64(3, 'UTC'),
            symbol        LowCardinality(String),
            mid           Float64,
            mark          Float64,
            ret_1h        Nullable(Float64),
            ret_4h        Nullable(Float64),
            atr_1h        Nullable(Float64),
            spread_bps    Float64,
            imbalance     Float64,
            funding_rate  Nullable(Float64),
            open_interest Nullable(Float64),
            funding_trend LowCardinality(String),
            state         String
        ) ENGINE = MergeTree
        ORDER BY (symbol, ts)
        TTL toDateTime(ts) + INTERVAL 90 DAY`, db),
	}
}

// CHFeatureSink archives one row per asset of every market state built.
type CHFeatureSink struct {
	db    *sql.DB
	ch    *pkgch.Client
	table string
	l     *applogger.Logger
}

var _ domrepo.FeatureSink = (*CHFeatureSink)(nil)

func NewCHFeatureSink(ch *pkgch.Client) *CHFeatureSink {
	return &CHFeatureSink{db: ch.DB(), ch: ch, table: ch.Database() + ".market_states", l: applogger.Nop()}
}

// SetLogger injects a structured logger.
func (s *CHFeatureSink) SetLogger(l *applogger.Logger) { s.l = applogger.OrNop(l) }

func (s *CHFeatureSink) Init(ctx context.Context) error {
	db, _, _ := strings.Cut(s.table, ".")
	return s.ch.InitSchema(ctx, FeatureSchema(db))
}

func (s *CHFeatureSink) Store(ctx context.Context, state *models.MarketState) error {
	if state == nil || len(state.Assets) == 0 {
		return nil
	}
	start := time.Now()
	values := make([]string, 0, len(state.Assets))
	args := make([]interface{}, 0, len(state.Assets)*13)
	for _, a := range state.Assets {
		doc, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("marshal asset state: %w", err)
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			state.Timestamp.UTC(),
			a.Symbol,
			a.Price.Mid,
			a.Price.Mark,
			a.Bars.Ret1h,
			a.Bars.Ret4h,
			a.Bars.ATR1h,
			a.Orderbook.SpreadBps,
			a.Orderbook.Imbalance,
			a.Funding.FundingRate,
			a.Funding.OpenInterest,
			a.Funding.Trend,
			string(doc),
		)
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.table, featureColumns, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		s.l.Error("clickhouse store_state error",
			applogger.String("table", s.table),
			applogger.Int("rows", len(values)),
			applogger.Error(err),
		)
		return fmt.Errorf("store market state: %w", err)
	}
	s.l.Debug("clickhouse store_state ok",
		applogger.String("table", s.table),
		applogger.Int("rows", len(values)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (s *CHFeatureSink) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

func (s *CHFeatureSink) Close() error {
	return nil // client owned by the container
}

// NopFeatureSink discards states. Used when ClickHouse is disabled.
type NopFeatureSink struct{}

func (NopFeatureSink) Init(context.Context) error                       { return nil }
func (NopFeatureSink) Store(context.Context, *models.MarketState) error { return nil }
func (NopFeatureSink) Health(context.Context) error                     { return nil }
func (NopFeatureSink) Close() error                                     { return nil }
