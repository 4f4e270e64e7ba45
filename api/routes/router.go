package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/safelink-ng/safelink-backend/api/controllers"
	"github.com/safelink-ng/safelink-backend/api/middleware"
	"github.com/safelink-ng/safelink-backend/internal/delivery"
	internalorders "github.com/safelink-ng/safelink-backend/internal/orders"
	"github.com/safelink-ng/safelink-backend/internal/profiles"
	"github.com/safelink-ng/safelink-backend/internal/settlement"
	"github.com/safelink-ng/safelink-backend/pkg/config"
	"github.com/safelink-ng/safelink-backend/pkg/db"
	"github.com/safelink-ng/safelink-backend/pkg/logger"
	"github.com/safelink-ng/safelink-backend/pkg/redis"
)

// RouterParams are the wired services the HTTP surface depends on.
type RouterParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         db.Pinger
	Redis      redis.Pinger
	Orders     internalorders.Service
	Delivery   delivery.Service
	Settlement settlement.Service
	Profiles   profiles.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	// Order creation and code confirmation are open: buyers arrive from a
	// checkout redirect without a token, and the delivery code itself is the
	// credential for confirmation. Everything that moves money or reveals a
	// stored secret requires a verified identity.
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(p.Orders, logg))
			r.Route("/{orderID}", func(r chi.Router) {
				r.Get("/", controllers.GetOrder(p.Orders, logg))
				r.Post("/confirm-delivery", controllers.ConfirmDelivery(p.Delivery, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.Auth(cfg.JWT, logg))
					r.Get("/delivery-code", controllers.GetDeliveryCode(p.Orders, logg))
					r.Post("/release", controllers.ReleaseEscrow(p.Settlement, logg))
				})
			})
		})

		r.Route("/settlement", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Post("/release", controllers.DirectTransfer(p.Settlement, logg))
		})

		r.Route("/banks", func(r chi.Router) {
			r.Post("/resolve", controllers.ResolveBankAccount(p.Profiles, logg))
		})

		r.Route("/profiles", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Put("/{profileID}/bank", controllers.UpsertBankDetails(p.Profiles, logg))
		})
	})

	return r
}
