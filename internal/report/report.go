// Package report builds the detailed model report run by the background
// executor under TaskName.
package report

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/evdata/evdata/internal/analytics"
	"github.com/evdata/evdata/internal/common"
	"github.com/evdata/evdata/internal/dataset"
	"github.com/evdata/evdata/internal/job"
	"github.com/evdata/evdata/internal/logger"
)

const (
	TaskName = "generate_detailed_report"

	// DefaultDelay stands in for the trend and competitor analysis.
	DefaultDelay = 6 * time.Second

	minBaseSales  = 10000
	firstSaleYear = 2019
	trendYears    = 5
	timeLayout    = "2006-01-02 15:04:05"
)

// Factors are the qualitative drivers listed with every forecast.
var Factors = []string{
	"Continued policy subsidies",
	"Charging network expansion",
	"Battery technology advances",
	"Rising consumer environmental awareness",
}

// competitor describes a reference model and the multiplier ranges applied
// to the base model's price and range.
type competitor struct {
	brand, model     string
	priceLo, priceHi float64
	rangeLo, rangeHi float64
}

var competitors = []competitor{
	{"Ford", "Mustang Mach-E", 1.02, 1.08, 0.88, 0.95},
	{"Chevrolet", "Bolt EUV", 0.82, 0.88, 0.78, 0.85},
	{"Hyundai", "Ioniq 5", 0.95, 1.02, 0.92, 1.0},
}

// salesBands are the [lo, hi) multipliers of the base figure for each trend year.
var salesBands = [trendYears][2]float64{{1, 2}, {1.5, 3}, {2, 4}, {3, 5}, {4, 6}}

type ModelInfo struct {
	Brand         string  `json:"brand"`
	Model         string  `json:"model"`
	Range         float64 `json:"range"`
	Price         float64 `json:"price"`
	MarketShare   float64 `json:"market_share"`
	PopularRegion string  `json:"popular_region"`
	Year          int     `json:"year"`
	EVType        string  `json:"ev_type"`
}

type SalesTrend struct {
	Years []int `json:"years"`
	Sales []int `json:"sales"`
}

type Competitor struct {
	Brand string  `json:"brand"`
	Model string  `json:"model"`
	Price float64 `json:"price"`
	Range float64 `json:"range"`
}

type Forecast struct {
	NextYearPrediction string   `json:"next_year_prediction"`
	GrowthPercent      int      `json:"growth_percent"`
	Factors            []string `json:"factors"`
}

type Report struct {
	ModelInfo          ModelInfo    `json:"model_info"`
	SalesTrend         SalesTrend   `json:"sales_trend"`
	CompetitorAnalysis []Competitor `json:"competitor_analysis"`
	MarketForecast     Forecast     `json:"market_forecast"`
	GeneratedAt        string       `json:"generated_at"`
	DataCoverage       string       `json:"data_coverage"`
}

// Source resolves a brand's records. *query.Engine satisfies it.
type Source interface {
	ByBrand(brand string) ([]dataset.Record, error)
}

type Option func(*Generator)

// WithDelay overrides the simulated analysis time.
func WithDelay(d time.Duration) Option {
	return func(g *Generator) { g.delay = d }
}

type Generator struct {
	source Source
	delay  time.Duration
	now    func() time.Time
	log    *logrus.Entry
}

func NewGenerator(source Source, opts ...Option) *Generator {
	g := &Generator{
		source: source,
		delay:  DefaultDelay,
		now:    time.Now,
		log:    logger.Component("report"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate builds the report for brand and model. It fails with NoData when
// the brand or the model has no records, and returns early if ctx ends
// during the analysis delay.
func (g *Generator) Generate(ctx context.Context, brand, model string) (*Report, error) {
	brandRecords, err := g.source.ByBrand(brand)
	if err != nil {
		return nil, fmt.Errorf("load brand records: %w", err)
	}
	if len(brandRecords) == 0 {
		return nil, common.NoDataf("no data for brand %s", brand)
	}

	var modelRecords []dataset.Record
	for _, r := range brandRecords {
		if r.Model != nil && strings.EqualFold(*r.Model, model) {
			modelRecords = append(modelRecords, r)
		}
	}
	if len(modelRecords) == 0 {
		return nil, common.NoDataf("no data for model %s %s", brand, model)
	}

	info := baseInfo(brand, model, modelRecords, brandRecords)
	total := analytics.SumVehicles(modelRecords)
	g.log.WithFields(logrus.Fields{"brand": brand, "model": model, "records": len(modelRecords)}).Info("generating report")

	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	growth := randRange(8, 25)
	return &Report{
		ModelInfo:          info,
		SalesTrend:         salesTrend(total),
		CompetitorAnalysis: competitorAnalysis(info.Price, info.Range),
		MarketForecast: Forecast{
			NextYearPrediction: fmt.Sprintf("Sales expected to grow %d%%", growth),
			GrowthPercent:      growth,
			Factors:            append([]string(nil), Factors...),
		},
		GeneratedAt:  g.now().Format(timeLayout),
		DataCoverage: fmt.Sprintf("Generated from %d source records", len(modelRecords)),
	}, nil
}

// Task adapts Generate to job.TaskFunc; args are brand and model.
func (g *Generator) Task(ctx context.Context, args ...any) (any, error) {
	if len(args) != 2 {
		return nil, common.InvalidArgumentf("%s expects brand and model, got %d args", TaskName, len(args))
	}
	brand, ok := args[0].(string)
	model, ok2 := args[1].(string)
	if !ok || !ok2 {
		return nil, common.InvalidArgumentf("%s expects string arguments", TaskName)
	}
	return g.Generate(ctx, brand, model)
}

// Register binds the report task on the executor.
func Register(e *job.Executor, g *Generator) {
	e.Register(TaskName, g.Task)
}

func baseInfo(brand, model string, modelRecords, brandRecords []dataset.Record) ModelInfo {
	first := modelRecords[0]
	info := ModelInfo{
		Brand:         brand,
		Model:         model,
		MarketShare:   analytics.MarketShareWithinBrand(modelRecords, brandRecords),
		PopularRegion: dataset.UnknownState,
		EVType:        dataset.Label(first.EVType, "unknown"),
	}
	if first.ElectricRange != nil {
		info.Range = *first.ElectricRange
	}
	if first.BaseMSRP != nil {
		info.Price = *first.BaseMSRP
	}
	if first.ModelYear != nil {
		info.Year = *first.ModelYear
	}
	if region, ok := analytics.PopularRegion(modelRecords); ok {
		info.PopularRegion = region
	}
	return info
}

func salesTrend(totalVehicles int) SalesTrend {
	base := max(minBaseSales, totalVehicles/5)
	trend := SalesTrend{Years: make([]int, trendYears), Sales: make([]int, trendYears)}
	for i, band := range salesBands {
		trend.Years[i] = firstSaleYear + i
		trend.Sales[i] = randRange(int(float64(base)*band[0]), int(float64(base)*band[1]))
	}
	return trend
}

func competitorAnalysis(price, rng float64) []Competitor {
	out := make([]Competitor, 0, len(competitors))
	for _, c := range competitors {
		out = append(out, Competitor{
			Brand: c.brand,
			Model: c.model,
			Price: analytics.Round(price*uniform(c.priceLo, c.priceHi), 2),
			Range: analytics.Round(rng*uniform(c.rangeLo, c.rangeHi), 1),
		})
	}
	return out
}

// randRange returns an int in [lo, hi).
func randRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rand.IntN(hi-lo)
}

func uniform(lo, hi float64) float64 {
	return lo + rand.Float64()*(hi-lo)
}
