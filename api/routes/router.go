package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arjunmehra/bazaarcart-backend/api/controllers"
	webhookcontrollers "github.com/arjunmehra/bazaarcart-backend/api/controllers/webhooks"
	"github.com/arjunmehra/bazaarcart-backend/api/middleware"
	"github.com/arjunmehra/bazaarcart-backend/internal/payments"
	"github.com/arjunmehra/bazaarcart-backend/pkg/config"
	"github.com/arjunmehra/bazaarcart-backend/pkg/logger"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Orders      controllers.OrdersService
	Settlements controllers.SettlementService
	Verifier    webhookcontrollers.PaymentVerifier
	Guard       *payments.IdempotencyGuard
	Readiness   map[string]controllers.Pinger
	Metrics     prometheus.Gatherer
}

// NewRouter assembles the HTTP surface.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Logging(deps.Logger),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, deps.Logger, deps.Readiness))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(deps.Orders, deps.Logger))
			r.Get("/", controllers.ListOrders(deps.Orders, deps.Logger))
			r.Get("/{orderNumber}", controllers.GetOrder(deps.Orders, deps.Logger))
			r.Post("/{orderNumber}/cancel", controllers.CancelOrder(deps.Orders, deps.Logger))
			r.Patch("/{orderNumber}/items/{itemID}/status", controllers.TransitionItem(deps.Orders, deps.Logger))
		})

		r.Route("/settlements", func(r chi.Router) {
			r.Post("/", controllers.CreateSettlement(deps.Settlements, deps.Logger))
			r.Get("/", controllers.ListSettlements(deps.Settlements, deps.Logger))
			r.Get("/{settlementID}", controllers.GetSettlement(deps.Settlements, deps.Logger))
			r.Post("/{settlementID}/{action}", controllers.SettlementTransition(deps.Settlements, deps.Logger))
		})

		r.Post("/webhooks/payment", webhookcontrollers.GatewayPayment(deps.Verifier, deps.Guard, deps.Logger))
	})

	return r
}
