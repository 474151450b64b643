package api

import (
	"net/http"

	"github.com/dvloznov/budgetiq/internal/api/handlers"
	"github.com/dvloznov/budgetiq/internal/api/middleware"
	"github.com/dvloznov/budgetiq/internal/auth"
	"github.com/dvloznov/budgetiq/internal/budgets"
	"github.com/dvloznov/budgetiq/internal/currency"
	"github.com/dvloznov/budgetiq/internal/dashboard"
	"github.com/dvloznov/budgetiq/internal/domain"
	"github.com/dvloznov/budgetiq/internal/groups"
	"github.com/dvloznov/budgetiq/internal/jobs"
	"github.com/dvloznov/budgetiq/internal/receipts"
	"github.com/dvloznov/budgetiq/internal/recurring"
	"github.com/dvloznov/budgetiq/internal/telemetry"
	"github.com/dvloznov/budgetiq/internal/transactions"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Prefix is the path every route is mounted under.
const Prefix = "/api/v1"

// Services are the dependencies the HTTP layer dispatches to.
type Services struct {
	Auth         *auth.Service
	Accounts     *currency.AccountService
	Transfers    *currency.TransferService
	Rates        currency.RatesProvider
	Transactions *transactions.Service
	Budgets      *budgets.Service
	Recurring    *recurring.Service
	Groups       *groups.Service
	Receipts     *receipts.Service
	Dashboard    *dashboard.Service
	Jobs         jobs.JobStore

	// Exports publishes export jobs; nil disables POST /exports/bigquery.
	Exports jobs.Publisher

	// DB backs the readiness probe; nil reports ready unconditionally.
	DB handlers.Pinger
}

// Options tune the HTTP layer.
type Options struct {
	AllowedOrigin string
	SecureCookies bool
	ServiceName   string
}

// NewRouter builds the API handler: middleware, routes and tracing.
func NewRouter(s Services, opts Options, log zerolog.Logger) http.Handler {
	authH := handlers.NewAuthHandler(s.Auth, opts.SecureCookies, log)
	currencyH := handlers.NewCurrencyHandler(s.Accounts, s.Transfers, s.Rates, log)
	transactionsH := handlers.NewTransactionsHandler(s.Transactions, log)
	planningH := handlers.NewPlanningHandler(s.Budgets, s.Recurring, s.Dashboard, log)
	groupsH := handlers.NewGroupsHandler(s.Groups, log)
	receiptsH := handlers.NewReceiptsHandler(s.Receipts, log)
	jobsH := handlers.NewJobsHandler(s.Jobs, log)
	exportsH := handlers.NewExportsHandler(s.Exports, log)
	healthH := handlers.NewHealthHandler(s.DB, log)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(opts.AllowedOrigin))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, domain.CodeNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	r.Route(Prefix, func(r chi.Router) {
		r.Get("/health", healthH.Health)
		r.Get("/health/ready", healthH.Ready)

		r.Post("/auth/signup", authH.Signup)
		r.Post("/auth/login", authH.Login)
		r.Post("/auth/logout", authH.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(s.Auth))

			r.Get("/auth/me", authH.Me)

			r.Route("/currency", func(r chi.Router) {
				r.Get("/accounts", currencyH.ListAccounts)
				r.Post("/accounts", currencyH.CreateAccount)
				r.Get("/convert", currencyH.ListConversions)
				r.Post("/convert", currencyH.Convert)
				r.Get("/rates", currencyH.Rates)
			})

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", transactionsH.ListTransactions)
				r.Post("/", transactionsH.CreateTransaction)
				r.Get("/suggestions", transactionsH.Suggestions)
				r.Post("/{id}/categorize", transactionsH.Categorize)
				r.Post("/{id}/split", transactionsH.Split)
			})

			r.Get("/budgets", planningH.ListBudgets)
			r.Post("/budgets", planningH.CreateBudget)
			r.Get("/recurring", planningH.ListRecurring)
			r.Post("/recurring", planningH.CreateRecurring)
			r.Get("/dashboard", planningH.Dashboard)

			r.Route("/groups", func(r chi.Router) {
				r.Get("/", groupsH.ListGroups)
				r.Post("/", groupsH.CreateGroup)
				r.Get("/{id}/expenses", groupsH.ListExpenses)
				r.Post("/{id}/expenses", groupsH.AddExpense)
				r.Get("/{id}/balances", groupsH.Balances)
			})

			r.Post("/receipts", receiptsH.UploadReceipt)
			r.Post("/ocr", receiptsH.ExtractReceipt)

			r.Get("/jobs", jobsH.ListJobs)
			r.Get("/jobs/{id}", jobsH.GetJob)

			r.Post("/exports/bigquery", exportsH.ExportBigQuery)
		})
	})

	name := opts.ServiceName
	if name == "" {
		name = "budgetiq-api"
	}
	return telemetry.Handler(r, name)
}
