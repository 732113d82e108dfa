package handlers

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	authMiddleware "isp_billing_echo/internal/middleware"
	"isp_billing_echo/internal/models"
	"isp_billing_echo/internal/services"
)

// Services bundles what the HTTP layer calls into
type Services struct {
	Billing   *services.BillingService
	Invoices  *services.InvoiceService
	Payments  *services.PaymentService
	Sessions  *services.CashSessionService
	Customers *services.CustomerService
	Plans     *services.PlanService
	Regions   *services.RegionService
	Users     *services.UserService
	Dashboard *services.DashboardService
	Receipts  ReceiptNotifier
}

// RegisterRoutes mounts the API under /api
func RegisterRoutes(e *echo.Echo, db *gorm.DB, svc Services, cronSecret string) {
	authHandler := NewAuthHandler(svc.Users)
	billingHandler := NewBillingHandler(svc.Billing)
	paymentHandler := NewPaymentHandler(svc.Payments, svc.Receipts)
	sessionHandler := NewSessionHandler(svc.Sessions)
	customerHandler := NewCustomerHandler(svc.Customers, svc.Billing, svc.Invoices)
	invoiceHandler := NewInvoiceHandler(svc.Invoices)
	planHandler := NewPlanHandler(svc.Plans)
	regionHandler := NewRegionHandler(svc.Regions)
	userHandler := NewUserHandler(svc.Users)
	dashboardHandler := NewDashboardHandler(svc.Dashboard)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/login", authHandler.HandleLogin)
	api.POST("/billing/run", billingHandler.Run, authMiddleware.RequireCronSecret(cronSecret))

	// Protected routes
	protected := api.Group("")
	protected.Use(authMiddleware.RequireUser(db))
	protected.GET("/me", authHandler.Me)

	staff := authMiddleware.RequireRole(models.UserRoleAdmin, models.UserRoleManager)
	admin := authMiddleware.RequireRole(models.UserRoleAdmin)
	collector := authMiddleware.RequireRole(models.UserRoleCollector)

	// Billing routes
	protected.POST("/billing/cycles", billingHandler.CreateCycles, staff)
	protected.POST("/billing/cycles/process", billingHandler.ProcessCycles, staff)

	// Customer routes
	protected.GET("/customers", customerHandler.List, staff)
	protected.GET("/customers/mine", customerHandler.Mine, collector)
	protected.GET("/customers/:id", customerHandler.Get)
	protected.POST("/customers", customerHandler.Store, staff)
	protected.PUT("/customers/:id", customerHandler.Update, staff)
	protected.DELETE("/customers/:id", customerHandler.Delete, admin)
	protected.POST("/customers/:id/bill", customerHandler.Bill, staff)
	protected.GET("/customers/:id/invoices", customerHandler.Invoices)
	protected.GET("/customers/:id/payments", paymentHandler.CustomerPayments)

	// Invoice routes
	protected.POST("/invoices", invoiceHandler.StoreCustom, staff)
	protected.POST("/invoices/:id/cancel", invoiceHandler.Cancel, staff)

	// Collection routes
	protected.POST("/payments/collect", paymentHandler.Collect, collector)
	protected.GET("/dashboard/collector", dashboardHandler.Collector, collector)

	// Cash session routes
	protected.POST("/sessions/open", sessionHandler.Open)
	protected.GET("/sessions/active", sessionHandler.Active, collector)
	protected.POST("/sessions/:id/close", sessionHandler.Close, collector)
	protected.POST("/sessions/:id/approve", sessionHandler.Approve)
	protected.GET("/sessions", sessionHandler.List, staff)
	protected.GET("/sessions/:id/payments", sessionHandler.Payments, staff)

	// Plan routes
	protected.GET("/plans", planHandler.ListPlans)
	protected.GET("/plans/:id", planHandler.GetPlan)
	protected.POST("/plans", planHandler.StorePlan, admin)
	protected.PUT("/plans/:id", planHandler.UpdatePlan, admin)
	protected.DELETE("/plans/:id", planHandler.DeletePlan, admin)

	// Region routes
	protected.GET("/regions", regionHandler.ListRegions)
	protected.POST("/regions", regionHandler.StoreRegion, admin)
	protected.PUT("/regions/:id", regionHandler.UpdateRegion, admin)
	protected.DELETE("/regions/:id", regionHandler.DeleteRegion, admin)

	// User routes
	protected.GET("/users", userHandler.ListUsers, staff)
	protected.GET("/users/:id", userHandler.GetUser, staff)
	protected.POST("/users", userHandler.StoreUser, admin)
	protected.PUT("/users/:id", userHandler.UpdateUser, admin)
	protected.DELETE("/users/:id", userHandler.DeleteUser, admin)
}
