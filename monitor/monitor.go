// monitor/monitor.go
package monitor

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wdlord/discord-pokebot/logger"
	"github.com/wdlord/discord-pokebot/services"
)

var _ services.Recorder = (*Metrics)(nil)

type Metrics struct {
	OnlineSessions   prometheus.Gauge
	PendingTradesG   prometheus.Gauge
	MessagesReceived *prometheus.CounterVec
	MessageLatency   prometheus.Histogram
	VariantsAdded    *prometheus.CounterVec
	Evolutions       *prometheus.CounterVec
	Trades           *prometheus.CounterVec
	PartialApplies   *prometheus.CounterVec
	RollResets       prometheus.Counter
}

// NewMetrics registers all collectors on reg (prometheus.DefaultRegisterer when nil).
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		OnlineSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_sessions",
			Help:      "Number of connected websocket sessions",
		}),
		PendingTradesG: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_trades",
			Help:      "Number of unresolved trade offers",
		}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received",
		}, []string{"msg_id"}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
		}),
		VariantsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "variants_added_total",
			Help:      "Creatures credited to players",
		}, []string{"shiny"}),
		Evolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evolutions_total",
			Help:      "Evolution requests by result",
		}, []string{"result"}),
		Trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Trade resolutions by result",
		}, []string{"result"}),
		PartialApplies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partial_apply_failures_total",
			Help:      "Multi-step ledger writes that failed after a committed step",
		}, []string{"stage"}),
		RollResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roll_resets_total",
			Help:      "Player roll quotas reset",
		}),
	}

	reg.MustRegister(
		m.OnlineSessions,
		m.PendingTradesG,
		m.MessagesReceived,
		m.MessageLatency,
		m.VariantsAdded,
		m.Evolutions,
		m.Trades,
		m.PartialApplies,
		m.RollResets,
	)
	return m
}

// --- services.Recorder ---

func (m *Metrics) VariantAdded(shiny bool, n uint64) {
	m.VariantsAdded.WithLabelValues(strconv.FormatBool(shiny)).Add(float64(n))
}

func (m *Metrics) Evolution(result string) { m.Evolutions.WithLabelValues(result).Inc() }

func (m *Metrics) Trade(result string) { m.Trades.WithLabelValues(result).Inc() }

func (m *Metrics) PartialApply(stage string) { m.PartialApplies.WithLabelValues(stage).Inc() }

func (m *Metrics) RollsReset(players int64) { m.RollResets.Add(float64(players)) }

func (m *Metrics) PendingTrades(n int) { m.PendingTradesG.Set(float64(n)) }

// --- gateway ---

func (m *Metrics) IncOnlineSessions() { m.OnlineSessions.Inc() }

func (m *Metrics) DecOnlineSessions() { m.OnlineSessions.Dec() }

func (m *Metrics) IncMessagesReceived(msgID uint16) {
	m.MessagesReceived.WithLabelValues(strconv.Itoa(int(msgID))).Inc()
}

func (m *Metrics) ObserveMessageLatency(duration time.Duration) {
	m.MessageLatency.Observe(duration.Seconds())
}

// Handler serves /metrics from gatherer and a plain /healthz.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Serve 启动监控HTTP服务，ctx取消时优雅关闭
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	srv := &http.Server{Addr: addr, Handler: Handler(gatherer), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Log.Infow("metrics server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
