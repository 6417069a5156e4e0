package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/logicore"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Gateway metrics
	AuthSuccessTotal        metric.Int64Counter
	AuthFailureTotal        metric.Int64Counter
	LegacyFallbackTotal     metric.Int64Counter
	OrgHintRejectedTotal    metric.Int64Counter
	PublicPathRequestsTotal metric.Int64Counter

	// Login metrics
	LoginAttemptsTotal  metric.Int64Counter
	LoginFailuresTotal  metric.Int64Counter
	SSOLoginsTotal      metric.Int64Counter
	TokensIssuedTotal   metric.Int64Counter
	OrgSwitchesTotal    metric.Int64Counter
	InvitationsRedeemed metric.Int64Counter

	// Access request metrics
	AccessRequestsCreatedTotal  metric.Int64Counter
	AccessRequestsApprovedTotal metric.Int64Counter
	AccessRequestsDeclinedTotal metric.Int64Counter

	// Scoped connection metrics
	ScopedAcquireTotal   metric.Int64Counter
	ScopedAcquireErrors  metric.Int64Counter
	ScopedConnsDiscarded metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	// Gateway metrics
	m.AuthSuccessTotal, _ = meter.Int64Counter(
		"logicore.auth.success.total",
		metric.WithDescription("Total number of requests authenticated at the gateway"),
		metric.WithUnit("{request}"),
	)

	m.AuthFailureTotal, _ = meter.Int64Counter(
		"logicore.auth.failure.total",
		metric.WithDescription("Total number of requests rejected at the gateway"),
		metric.WithUnit("{request}"),
	)

	m.LegacyFallbackTotal, _ = meter.Int64Counter(
		"logicore.auth.legacy_fallback.total",
		metric.WithDescription("Total number of unauthenticated requests admitted under the legacy default organization fallback"),
		metric.WithUnit("{request}"),
	)

	m.OrgHintRejectedTotal, _ = meter.Int64Counter(
		"logicore.auth.org_hint_rejected.total",
		metric.WithDescription("Total number of organization hints rejected because the user is not a member"),
		metric.WithUnit("{request}"),
	)

	m.PublicPathRequestsTotal, _ = meter.Int64Counter(
		"logicore.auth.public_path.total",
		metric.WithDescription("Total number of requests admitted on public paths"),
		metric.WithUnit("{request}"),
	)

	// Login metrics
	m.LoginAttemptsTotal, _ = meter.Int64Counter(
		"logicore.login.attempts.total",
		metric.WithDescription("Total number of password login attempts"),
		metric.WithUnit("{attempt}"),
	)

	m.LoginFailuresTotal, _ = meter.Int64Counter(
		"logicore.login.failures.total",
		metric.WithDescription("Total number of failed password login attempts"),
		metric.WithUnit("{attempt}"),
	)

	m.SSOLoginsTotal, _ = meter.Int64Counter(
		"logicore.login.sso.total",
		metric.WithDescription("Total number of completed SSO logins"),
		metric.WithUnit("{login}"),
	)

	m.TokensIssuedTotal, _ = meter.Int64Counter(
		"logicore.tokens.issued.total",
		metric.WithDescription("Total number of identity tokens issued"),
		metric.WithUnit("{token}"),
	)

	m.OrgSwitchesTotal, _ = meter.Int64Counter(
		"logicore.tokens.org_switches.total",
		metric.WithDescription("Total number of organization switches"),
		metric.WithUnit("{switch}"),
	)

	m.InvitationsRedeemed, _ = meter.Int64Counter(
		"logicore.invitations.redeemed.total",
		metric.WithDescription("Total number of invitations redeemed"),
		metric.WithUnit("{invitation}"),
	)

	// Access request metrics
	m.AccessRequestsCreatedTotal, _ = meter.Int64Counter(
		"logicore.access_requests.created.total",
		metric.WithDescription("Total number of access requests created"),
		metric.WithUnit("{request}"),
	)

	m.AccessRequestsApprovedTotal, _ = meter.Int64Counter(
		"logicore.access_requests.approved.total",
		metric.WithDescription("Total number of access requests approved"),
		metric.WithUnit("{request}"),
	)

	m.AccessRequestsDeclinedTotal, _ = meter.Int64Counter(
		"logicore.access_requests.declined.total",
		metric.WithDescription("Total number of access requests declined"),
		metric.WithUnit("{request}"),
	)

	// Scoped connection metrics
	m.ScopedAcquireTotal, _ = meter.Int64Counter(
		"logicore.scoped_conns.acquired.total",
		metric.WithDescription("Total number of scoped connection checkouts"),
		metric.WithUnit("{checkout}"),
	)

	m.ScopedAcquireErrors, _ = meter.Int64Counter(
		"logicore.scoped_conns.errors.total",
		metric.WithDescription("Total number of failed scope bindings"),
		metric.WithUnit("{error}"),
	)

	m.ScopedConnsDiscarded, _ = meter.Int64Counter(
		"logicore.scoped_conns.discarded.total",
		metric.WithDescription("Total number of connections discarded because the scope could not be cleared"),
		metric.WithUnit("{connection}"),
	)

	return m
}
