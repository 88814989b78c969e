package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 业务指标，nil 接收者上的所有方法都是空操作
type Metrics struct {
	ordersCreated   *prometheus.CounterVec
	verifications   *prometheus.CounterVec
	expired         prometheus.Counter
	channelRemovals *prometheus.CounterVec
	alertsPublished *prometheus.CounterVec
	recipients      prometheus.Counter
	notifications   *prometheus.CounterVec
}

// New 创建并注册指标，reg 为 nil 时使用默认注册表
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trademint",
			Name:      "orders_created_total",
			Help:      "Gateway orders created, by gateway.",
		}, []string{"gateway"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trademint",
			Name:      "payment_verifications_total",
			Help:      "Payment verifications, by outcome.",
		}, []string{"outcome"}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trademint",
			Name:      "subscriptions_expired_total",
			Help:      "Subscriptions moved from ACTIVE to EXPIRED by the sweeper.",
		}),
		channelRemovals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trademint",
			Name:      "channel_removals_total",
			Help:      "Channel member removals, by outcome.",
		}, []string{"outcome"}),
		alertsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trademint",
			Name:      "alerts_published_total",
			Help:      "Trade alerts published, by whether an earlier identical alert was reused.",
		}, []string{"dedup"}),
		recipients: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trademint",
			Name:      "alert_recipients_recorded_total",
			Help:      "Alert recipient rows inserted.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trademint",
			Name:      "notifications_total",
			Help:      "Notification jobs handled, by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}

	collectors := []prometheus.Collector{
		m.ordersCreated, m.verifications, m.expired, m.channelRemovals,
		m.alertsPublished, m.recipients, m.notifications,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) OrderCreated(gateway string) {
	if m == nil {
		return
	}
	m.ordersCreated.WithLabelValues(gateway).Inc()
}

// Verification outcome 取值 captured / invalid_signature / already_processed / failed
func (m *Metrics) Verification(outcome string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Expired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.expired.Add(float64(n))
}

func (m *Metrics) ChannelRemoval(ok bool) {
	if m == nil {
		return
	}
	m.channelRemovals.WithLabelValues(outcome(ok)).Inc()
}

func (m *Metrics) AlertPublished(reused bool) {
	if m == nil {
		return
	}
	label := "new"
	if reused {
		label = "reused"
	}
	m.alertsPublished.WithLabelValues(label).Inc()
}

func (m *Metrics) RecipientsRecorded(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.recipients.Add(float64(n))
}

func (m *Metrics) Notification(kind string, ok bool) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, outcome(ok)).Inc()
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
