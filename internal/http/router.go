package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/propledger/internal/http/importtx"
	"github.com/MrJamesThe3rd/propledger/internal/http/property"
	"github.com/MrJamesThe3rd/propledger/internal/http/render"
	"github.com/MrJamesThe3rd/propledger/internal/http/transaction"
)

type Options struct {
	AllowedOrigins []string
	// Authenticate rejects anonymous requests and stores the user id in the context.
	Authenticate func(http.Handler) http.Handler
}

func New(
	opts Options,
	propertiesV1 *property.Handler,
	transactionsV1 *transaction.Handler,
	importV1 *importtx.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		render.JSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(opts.Authenticate)

		// Multipart, so no JSON content-type restriction.
		r.Route("/transactions/import", importV1.Routes)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))

			r.Route("/transactions", transactionsV1.Routes)

			r.Route("/properties", func(r chi.Router) {
				propertiesV1.Routes(r)
				transactionsV1.PropertyRoutes(r)
			})
		})
	})

	return router
}
