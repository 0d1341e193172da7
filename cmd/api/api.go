package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lendbook/docs" //this is required to generate swagger docs
	"lendbook/internal/auth"
	"lendbook/internal/authz"
	"lendbook/internal/cache"
	"lendbook/internal/domain/accesscontrol"
	"lendbook/internal/mailer"
	"lendbook/internal/notifications"
	"lendbook/internal/ratelimiter"
	"lendbook/internal/store"
	"lendbook/internal/tenant"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type application struct {
	config        config
	store         store.Storage
	access        accesscontrol.Store
	logger        *zap.SugaredLogger
	mailer        mailer.Client
	authenticator auth.Authenticator
	rateLimiter   *ratelimiter.FixedWindowRateLimiter
	permissions   *cache.PermissionsCache
	tenants       *cache.TenantCache
	selections    tenant.SelectionStore
	push          notifications.PushSender
	loanRefs      *store.LoanReferenceGenerator
}

type config struct {
	addr        string
	db          dbConfig
	redis       redisConfig
	env         string
	apiURL      string
	mail        mailConfig
	frontendURL string
	auth        authConfig
	rateLimiter ratelimiter.Config
	loanRefSalt string
}

type authConfig struct {
	basic basicConfig
	token tokenConfig
}
type tokenConfig struct {
	refreshSecret   string
	secret          string
	accessTokenExp  time.Duration
	refreshTokenExp time.Duration
	iss             string
}
type basicConfig struct {
	user string
	pass string
}

type mailConfig struct {
	exp       time.Duration
	fromEmail string
	smtp      smtpConfig
}

type smtpConfig struct {
	host     string
	port     int
	username string
	password string
}

type dbConfig struct {
	addr        string
	maxConns    int
	maxIdleTime string
}

type redisConfig struct {
	addr     string
	password string
	db       int
}

// tenantResolver builds a resolver scoped to one session. The resolver keeps
// per-session state (generation counter, current context), so it is never
// shared across users.
func (app *application) tenantResolver() *tenant.Resolver {
	return tenant.NewResolver(app.access, app.selections, app.tenants, app.logger)
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(app.RateLimiterMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Organization-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	//Set a timeout value on the request context (ctx), that will signal through ctx.Done() that the request has timed out and further processing should be stopped
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.With(app.BasicAuthMiddleware()).Get("/health", app.healthCheckHandler)
		docsURL := fmt.Sprintf("%s/swagger/doc.json", app.config.addr)
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docsURL)))

		r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)

		r.Route("/authentication", func(r chi.Router) {
			r.Post("/user", app.registerUserHandler)
			r.Post("/token", app.createTokenHandler)
			r.Post("/refresh", app.refreshTokenHandler)
		})

		// Route that does NOT require authentication
		r.Put("/users/activate/{token}", app.activateUserHandler)

		r.Group(func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)

			r.Post("/users/logout", app.logoutHandler)

			r.Route("/organizations", func(r chi.Router) {
				r.Get("/", app.listOrganizationsHandler)
				r.Post("/", app.createOrganizationHandler)
				r.Get("/current", app.currentOrganizationHandler)
				r.Post("/switch", app.switchOrganizationHandler)
			})

			// Everything below runs inside one tenant.
			r.Group(func(r chi.Router) {
				r.Use(app.TenantContextMiddleware)

				r.With(app.RequirePermission(authz.PermRolesView)).
					Get("/permissions", app.listPermissionsHandler)

				r.Route("/roles", func(r chi.Router) {
					r.With(app.RequirePermission(authz.PermRolesView)).Get("/", app.listRolesHandler)
					r.With(app.RequirePermission(authz.PermRolesManage)).Post("/", app.createRoleHandler)
					r.Route("/{roleID}", func(r chi.Router) {
						r.With(app.RequirePermission(authz.PermRolesView)).Get("/", app.getRoleHandler)
						r.With(app.RequirePermission(authz.PermRolesManage)).Put("/permissions", app.updateRolePermissionsHandler)
						r.With(app.RequirePermission(authz.PermRolesManage)).Delete("/", app.deleteRoleHandler)
					})
				})

				r.Route("/users", func(r chi.Router) {
					r.With(app.RequirePermission(authz.PermUsersView)).Get("/", app.listStaffHandler)
					r.With(app.RequirePermission(authz.PermUsersAssignRoles)).Post("/invite", app.inviteStaffHandler)
					r.Route("/{userID}", func(r chi.Router) {
						r.Post("/assign-role", app.assignRoleHandler)
						r.Delete("/role", app.removeRoleHandler)
					})
				})

				r.Route("/customers", func(r chi.Router) {
					r.With(app.RequirePermission(authz.PermCustomersView)).Get("/", app.listCustomersHandler)
					r.With(app.RequirePermission(authz.PermCustomersCreate)).Post("/", app.createCustomerHandler)
					r.Route("/{customerID}", func(r chi.Router) {
						r.With(app.RequirePermission(authz.PermCustomersView)).Get("/", app.getCustomerHandler)
						r.With(app.RequirePermission(authz.PermCustomersUpdate)).Put("/", app.updateCustomerHandler)
						r.With(app.RequirePermission(authz.PermCustomersDelete)).Delete("/", app.deleteCustomerHandler)
					})
				})

				r.Route("/loans", func(r chi.Router) {
					r.With(app.RequirePermission(authz.PermLoansView)).Get("/", app.listLoansHandler)
					r.With(app.RequirePermission(authz.PermLoansCreate)).Post("/", app.createLoanHandler)
					r.Route("/{loanID}", func(r chi.Router) {
						r.With(app.RequirePermission(authz.PermLoansView)).Get("/", app.getLoanHandler)
						r.With(app.RequirePermission(authz.PermLoansDelete)).Delete("/", app.deleteLoanHandler)
						r.With(app.RequirePermission(authz.PermLoansApprove)).Post("/approve", app.approveLoanHandler)
						r.With(app.RequirePermission(authz.PermLoansDisburse)).Post("/disburse", app.disburseLoanHandler)
						r.With(app.RequirePermission(authz.PermLoansUpdate)).Patch("/status", app.updateLoanStatusHandler)
						r.With(app.RequirePermission(authz.PermLoansView)).Get("/schedule", app.getLoanScheduleHandler)
						r.With(app.RequirePermission(authz.PermRepaymentsRecord)).Post("/repayments", app.recordRepaymentHandler)
						r.With(app.RequirePermission(authz.PermRepaymentsView)).Get("/repayments", app.listRepaymentsHandler)
					})
				})

				r.Route("/transactions", func(r chi.Router) {
					r.With(app.RequirePermission(authz.PermTransactionsView)).Get("/", app.listTransactionsHandler)
					r.With(app.RequirePermission(authz.PermTransactionsView)).Get("/summary", app.transactionSummaryHandler)
					r.With(app.RequirePermission(authz.PermTransactionsCreate)).Post("/", app.createTransactionHandler)
					r.With(app.RequirePermission(authz.PermTransactionsDelete)).Delete("/{transactionID}", app.deleteTransactionHandler)
				})

				r.Route("/bank-accounts", func(r chi.Router) {
					r.With(app.RequirePermission(authz.PermBankAccountsView)).Get("/", app.listBankAccountsHandler)
					r.With(app.RequirePermission(authz.PermBankAccountsCreate)).Post("/", app.createBankAccountHandler)
					r.Route("/{accountID}", func(r chi.Router) {
						r.With(app.RequirePermission(authz.PermBankAccountsView)).Get("/", app.getBankAccountHandler)
						r.With(app.RequirePermission(authz.PermBankAccountsUpdate)).Put("/", app.updateBankAccountHandler)
						r.With(app.RequirePermission(authz.PermBankAccountsDelete)).Delete("/", app.deleteBankAccountHandler)
					})
				})

				r.With(app.RequirePermission(authz.PermDashboardView)).
					Get("/dashboard", app.dashboardHandler)

				r.Route("/push-tokens", func(r chi.Router) {
					r.Post("/", app.registerPushTokenHandler)
					r.Delete("/", app.deletePushTokenHandler)
				})
			})
		})
	})
	return r
}

func (app *application) run(mux http.Handler) error {
	// Docs
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Host = app.config.apiURL
	docs.SwaggerInfo.BasePath = "/v1"

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	// Implementing graceful shutdown
	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
