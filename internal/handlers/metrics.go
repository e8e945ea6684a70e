package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harmonix/backend/internal/models"
	"github.com/harmonix/backend/internal/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

const metricsNamespace = "harmonix"

var startTime = time.Now()

type MetricsHandler struct {
	registry *prometheus.Registry
}

func NewMetricsHandler(db *gorm.DB, queue services.TaskQueue, deliveries *services.EmailDeliveryService) *MetricsHandler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		newDomainCollector(db, queue, deliveries),
	)
	return &MetricsHandler{registry: registry}
}

// Metrics serves the registry in the Prometheus exposition format.
// GET /metrics
func (h *MetricsHandler) Metrics(c *gin.Context) {
	promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}).ServeHTTP(c.Writer, c.Request)
}

// domainCollector reads its gauges from the database on every scrape.
type domainCollector struct {
	db         *gorm.DB
	queue      services.TaskQueue
	deliveries *services.EmailDeliveryService

	uptime              *prometheus.Desc
	dbOpen              *prometheus.Desc
	dbInUse             *prometheus.Desc
	queueAsync          *prometheus.Desc
	musicians           *prometheus.Desc
	bands               *prometheus.Desc
	activeListings      *prometheus.Desc
	pendingApplications *prometheus.Desc
	pendingInvitations  *prometheus.Desc
	emailDeliveries     *prometheus.Desc
}

func newDomainCollector(db *gorm.DB, queue services.TaskQueue, deliveries *services.EmailDeliveryService) *domainCollector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(metricsNamespace, "", name), help, labels, nil)
	}
	return &domainCollector{
		db:         db,
		queue:      queue,
		deliveries: deliveries,

		uptime:              desc("uptime_seconds", "Time since server start in seconds"),
		dbOpen:              desc("db_open_connections", "Number of open DB connections"),
		dbInUse:             desc("db_in_use_connections", "Number of in-use DB connections"),
		queueAsync:          desc("queue_async_enabled", "Whether the Redis email queue is enabled (1=yes, 0=no)"),
		musicians:           desc("musicians_active", "Number of active musician accounts"),
		bands:               desc("bands_active", "Number of active band admin accounts"),
		activeListings:      desc("listings_active", "Number of active listings"),
		pendingApplications: desc("applications_pending", "Applications awaiting review"),
		pendingInvitations:  desc("invitations_pending", "Invitations awaiting an answer"),
		emailDeliveries:     desc("email_deliveries", "Email deliveries by status", "status"),
	}
}

func (d *domainCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- d.uptime
	ch <- d.dbOpen
	ch <- d.dbInUse
	ch <- d.queueAsync
	ch <- d.musicians
	ch <- d.bands
	ch <- d.activeListings
	ch <- d.pendingApplications
	ch <- d.pendingInvitations
	ch <- d.emailDeliveries
}

func (d *domainCollector) Collect(ch chan<- prometheus.Metric) {
	gauge := func(desc *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v, labels...)
	}

	gauge(d.uptime, time.Since(startTime).Seconds())

	if sqlDB, err := d.db.DB(); err == nil {
		stats := sqlDB.Stats()
		gauge(d.dbOpen, float64(stats.OpenConnections))
		gauge(d.dbInUse, float64(stats.InUse))
	}

	queueAsync := 0.0
	if d.queue != nil && d.queue.IsAsync() {
		queueAsync = 1
	}
	gauge(d.queueAsync, queueAsync)

	var musicians, bands, activeListings, pendingApplications, pendingInvitations int64
	d.db.Model(&models.User{}).Where("role = ? AND is_active = ?", models.RoleMusician, true).Count(&musicians)
	d.db.Model(&models.User{}).Where("role = ? AND is_active = ?", models.RoleBand, true).Count(&bands)
	d.db.Model(&models.Listing{}).Where("is_active = ?", true).Count(&activeListings)
	d.db.Model(&models.Application{}).Where("status = ?", models.ApplicationPending).Count(&pendingApplications)
	d.db.Model(&models.Invitation{}).Where("status = ?", models.InvitationPending).Count(&pendingInvitations)

	gauge(d.musicians, float64(musicians))
	gauge(d.bands, float64(bands))
	gauge(d.activeListings, float64(activeListings))
	gauge(d.pendingApplications, float64(pendingApplications))
	gauge(d.pendingInvitations, float64(pendingInvitations))

	if d.deliveries == nil {
		return
	}
	counts, err := d.deliveries.CountByStatus()
	if err != nil {
		return
	}
	for _, status := range []models.DeliveryStatus{
		models.DeliveryPending, models.DeliveryRetrying, models.DeliverySent, models.DeliveryFailed,
	} {
		gauge(d.emailDeliveries, float64(counts[status]), string(status))
	}
}
