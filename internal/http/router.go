package http

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/WailSalutem-Health-Care/care-portal/internal/appointment"
	"github.com/WailSalutem-Health-Care/care-portal/internal/auth"
	"github.com/WailSalutem-Health-Care/care-portal/internal/booking"
	"github.com/WailSalutem-Health-Care/care-portal/internal/dashboard"
	"github.com/WailSalutem-Health-Care/care-portal/internal/directory"
	"github.com/WailSalutem-Health-Care/care-portal/internal/medication"
	"github.com/WailSalutem-Health-Care/care-portal/internal/session"
	"github.com/WailSalutem-Health-Care/care-portal/internal/survey"
	"github.com/WailSalutem-Health-Care/care-portal/internal/telemetry"
)

// Handlers are the domain handlers mounted by the router.
type Handlers struct {
	Session     *session.Handler
	Booking     *booking.Handler
	Dashboard   *dashboard.Handler
	Survey      *survey.Handler
	Directory   *directory.Handler
	Medication  *medication.Handler
	Appointment *appointment.Handler
}

// Options carries the cross-cutting pieces of the router.
type Options struct {
	Verifier    *auth.Verifier
	Sessions    *session.Manager
	Permissions auth.Permissions

	// AuthMetrics and HTTPMetrics may be nil.
	AuthMetrics auth.MetricsRecorder
	HTTPMetrics HTTPMetrics
	// Prometheus enables /metrics when set.
	Prometheus *telemetry.Prometheus

	AllowedOrigins []string
	Ready          map[string]Pinger
}

// SetupRouter initializes all routes for the application. Every page route
// runs bearer verification, then the session middleware, then its gate.
func SetupRouter(h Handlers, opts Options) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(notFound)

	r.Use(otelmux.Middleware("care-portal"))
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recovery)
	var scrape ScrapeMetrics
	if opts.Prometheus != nil {
		scrape = opts.Prometheus
	}
	r.Use(Metrics(opts.HTTPMetrics, scrape))

	// Health
	r.HandleFunc("/health", health).Methods(http.MethodGet)
	r.HandleFunc("/ready", ready(opts.Ready)).Methods(http.MethodGet)
	if opts.Prometheus != nil {
		r.Handle("/metrics", opts.Prometheus.Handler()).Methods(http.MethodGet)
	}

	verify := auth.MiddlewareWithMetrics(opts.Verifier, opts.AuthMetrics)
	public := func(next http.Handler) http.Handler {
		return verify(opts.Sessions.Middleware(next))
	}
	gated := func(next http.Handler, roles ...auth.Role) http.Handler {
		return public(auth.RequireRolesWithMetrics(opts.AuthMetrics, roles...)(next))
	}
	permitted := func(next http.Handler, per string) http.Handler {
		return public(auth.RequirePermissionWithMetrics(per, opts.Permissions, opts.AuthMetrics)(next))
	}

	// Public pages
	r.Handle("/", public(http.HandlerFunc(landingPage))).Methods(http.MethodGet)
	r.Handle("/unauthorized", public(http.HandlerFunc(unauthorizedPage))).Methods(http.MethodGet)
	r.Handle("/session", public(http.HandlerFunc(h.Session.Current))).Methods(http.MethodGet)
	r.Handle("/login", public(http.HandlerFunc(h.Session.LoginForm))).Methods(http.MethodGet)
	r.Handle("/login", public(http.HandlerFunc(h.Session.Login))).Methods(http.MethodPost)
	r.Handle("/register", public(http.HandlerFunc(h.Session.LoginForm))).Methods(http.MethodGet)
	r.Handle("/register", public(http.HandlerFunc(h.Session.Register))).Methods(http.MethodPost)
	r.Handle("/logout", public(http.HandlerFunc(h.Session.Logout))).Methods(http.MethodPost)
	r.Handle("/forgot-password", public(http.HandlerFunc(h.Session.ForgotPassword))).Methods(http.MethodPost)
	r.Handle("/reset-password", public(http.HandlerFunc(h.Session.ResetPassword))).Methods(http.MethodPost)

	// Dashboards
	r.Handle("/patient", gated(http.HandlerFunc(h.Dashboard.Patient), auth.RolePatient)).Methods(http.MethodGet)
	r.Handle("/doctor", gated(http.HandlerFunc(h.Dashboard.Doctor), auth.RoleDoctor)).Methods(http.MethodGet)
	r.Handle("/hospital", gated(http.HandlerFunc(h.Dashboard.Hospital), auth.RoleHospital)).Methods(http.MethodGet)
	r.Handle("/caretaker", gated(http.HandlerFunc(h.Dashboard.Caretaker), auth.RoleCaretaker)).Methods(http.MethodGet)

	// Patient flows
	wizard := r.MatcherFunc(func(req *http.Request, _ *mux.RouteMatch) bool {
		return req.URL.Path == "/book-appointment" || strings.HasPrefix(req.URL.Path, "/book-appointment/")
	}).Subrouter()
	wizard.NotFoundHandler = http.HandlerFunc(notFound)
	wizard.MethodNotAllowedHandler = http.HandlerFunc(notFound)
	wizard.Use(func(next http.Handler) http.Handler { return gated(next, auth.RolePatient) })
	h.Booking.RegisterRoutes(wizard)

	r.Handle("/surveys/new", gated(http.HandlerFunc(h.Survey.Form), auth.RolePatient)).Methods(http.MethodGet)
	r.Handle("/surveys/new", gated(http.HandlerFunc(h.Survey.Submit), auth.RolePatient)).Methods(http.MethodPost)

	// Staff actions
	r.Handle("/hospital/doctors",
		permitted(http.HandlerFunc(h.Directory.RegisterDoctor), "doctor:register"),
	).Methods(http.MethodPost)
	r.Handle("/doctor/medicines",
		permitted(http.HandlerFunc(h.Medication.Prescribe), "medicine:prescribe"),
	).Methods(http.MethodPost)
	r.Handle("/appointments/{id}/status",
		permitted(http.HandlerFunc(h.Appointment.UpdateStatus), "appointment:update"),
	).Methods(http.MethodPatch)

	return CORSMiddleware(opts.AllowedOrigins)(r)
}
