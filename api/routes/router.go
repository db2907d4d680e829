package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harrypeter07/billsync/api/controllers"
	"github.com/harrypeter07/billsync/api/middleware"
	customersvc "github.com/harrypeter07/billsync/internal/customers"
	employeesvc "github.com/harrypeter07/billsync/internal/employees"
	invoicesvc "github.com/harrypeter07/billsync/internal/invoices"
	productsvc "github.com/harrypeter07/billsync/internal/products"
	"github.com/harrypeter07/billsync/internal/session"
	"github.com/harrypeter07/billsync/internal/syncqueue"
	"github.com/harrypeter07/billsync/pkg/config"
	"github.com/harrypeter07/billsync/pkg/db"
	"github.com/harrypeter07/billsync/pkg/db/models"
	"github.com/harrypeter07/billsync/pkg/logger"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        *db.Client
	Store     models.Store
	Sessions  *session.Manager
	Queue     *syncqueue.Repository
	Products  *productsvc.Service
	Customers *customersvc.Service
	Invoices  *invoicesvc.Service
	Employees *employeesvc.Service
}

// NewRouter assembles the HTTP surface.
func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(logg, d.DB))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/owner/login", controllers.OwnerLogin(cfg, d.Store, d.Sessions, logg))
		r.Post("/employee/login", controllers.EmployeeLogin(d.Employees, d.Store, logg))
		r.Post("/logout", controllers.Logout(d.Sessions, logg))
		r.Get("/session", controllers.SessionStatus(cfg, d.Sessions, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireIdentity(cfg.JWT, d.Sessions, logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.CreateProduct(d.Products, logg))
			r.Get("/", controllers.ListProducts(d.Products, logg))
			r.Get("/{id}", controllers.GetProduct(d.Products, logg))
			r.Put("/{id}", controllers.UpdateProduct(d.Products, logg))
			r.Delete("/{id}", controllers.DeleteProduct(d.Products, logg))
		})

		r.Route("/customers", func(r chi.Router) {
			r.Post("/", controllers.CreateCustomer(d.Customers, logg))
			r.Get("/", controllers.ListCustomers(d.Customers, logg))
			r.Get("/{id}", controllers.GetCustomer(d.Customers, logg))
			r.Put("/{id}", controllers.UpdateCustomer(d.Customers, logg))
			r.Delete("/{id}", controllers.DeleteCustomer(d.Customers, logg))
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Post("/", controllers.CreateInvoice(d.Invoices, d.Store, logg))
			r.Get("/", controllers.ListInvoices(d.Invoices, logg))
			r.Get("/{id}", controllers.GetInvoice(d.Invoices, logg))
			r.Put("/{id}/items", controllers.UpdateInvoiceItems(d.Invoices, d.Store, logg))
			r.Post("/{id}/transition", controllers.TransitionInvoice(d.Invoices, d.Store, logg))
			r.Delete("/{id}", controllers.DeleteInvoice(d.Invoices, logg))
		})

		r.Route("/employees", func(r chi.Router) {
			r.Post("/", controllers.HireEmployee(d.Employees, d.Store, logg))
			r.Get("/", controllers.ListEmployees(d.Employees, d.Store, logg))
			r.Delete("/{id}", controllers.DeactivateEmployee(d.Employees, d.Store, logg))
		})

		r.Get("/sync/status", controllers.SyncStatus(d.Queue, logg))
	})

	return r
}
