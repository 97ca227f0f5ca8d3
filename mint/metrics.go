package mint

import (
	"math/big"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pixlmixr/minting-service/models"
)

const (
	MetricNameSpace = "minting"

	outcomeSuccess = "success"
)

// pipeline stages
const (
	StagePayment  = "payment"
	StageAsset    = "asset"
	StagePinAsset = "pin_asset"
	StagePinMeta  = "pin_metadata"
	StageMint     = "mint"
)

var (
	mintsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "mints_total",
			Help:      "mint requests by outcome",
		},
		[]string{"outcome"},
	)
	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: MetricNameSpace,
			Name:      "stage_duration_seconds",
			Help:      "time spent in each pipeline stage",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)
	minterBalance = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: MetricNameSpace,
			Name:      "minter_balance",
			Help:      "native balance of the gas paying account in ether",
		},
		[]string{"address"},
	)
)

func init() {
	prometheus.MustRegister(
		mintsTotal,
		stageDuration,
		minterBalance,
	)
}

func metricOutcome(err error) {
	if err == nil {
		mintsTotal.WithLabelValues(outcomeSuccess).Inc()
		return
	}
	mintsTotal.WithLabelValues(models.ErrorCode(err)).Inc()
}

func metricStage(stage string, start time.Time) {
	stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// MetricMinterBalance records a wei balance for address.
func MetricMinterBalance(address string, wei *big.Int) {
	if wei == nil {
		return
	}
	ether, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e18)).Float64()
	minterBalance.WithLabelValues(address).Set(ether)
}
