package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/restodesk/api/internal/cache"
	"github.com/restodesk/api/internal/chat"
	"github.com/restodesk/api/internal/config"
	"github.com/restodesk/api/internal/database"
	"github.com/restodesk/api/internal/handler"
	mw "github.com/restodesk/api/internal/middleware"
	"github.com/restodesk/api/internal/permission"
	"github.com/restodesk/api/internal/service"
	"github.com/restodesk/api/internal/ws"
)

// Deps are the long-lived collaborators built by cmd/server.
type Deps struct {
	Queries *database.Queries
	Pool    *pgxpool.Pool
	Hub     *ws.Hub
	// Cache may be nil; checkout dedupe then relies on the database and chat
	// snapshots are rebuilt on every question.
	Cache *cache.RedisCache
	// StockHook consumes stock for placed orders: an inline
	// *service.InventoryConsumer or a Kafka publisher.
	StockHook service.OrderPlacedHook
	LLM       chat.Completer
}

// New creates a Chi router with all application routes wired up.
// Applies authentication, restaurant scoping, and permission middleware as needed.
func New(cfg *config.Config, deps Deps) chi.Router {
	queries := deps.Queries
	pool := deps.Pool

	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	checker := permission.NewChecker(queries)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret, checker)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/restaurants/{rid}/events", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(deps.Hub, cfg.JWTSecret, w, r)
	})

	notifier := ws.NewNotifier(deps.Hub)
	lowStock := service.MultiLowStock(service.LogLowStock, notifier)

	hooks := []service.OrderPlacedHook{notifier}
	if deps.StockHook != nil {
		hooks = append(hooks, deps.StockHook)
	}
	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, hooks...)

	var guard handler.CheckoutGuard
	var snapshots chat.SnapshotCache
	if deps.Cache != nil {
		guard = deps.Cache
		snapshots = deps.Cache
	}

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		permissionHandler := handler.NewPermissionHandler(
			queries,
			checker,
			pool,
			func(db database.DBTX) handler.RolePermissionStore {
				return database.New(db)
			},
		)
		r.Route("/me", permissionHandler.RegisterMeRoutes)
		r.Route("/role-permissions", func(r chi.Router) {
			r.Use(mw.RequirePermission(checker, permission.ManagePermissions))
			permissionHandler.RegisterRoutes(r)
		})

		// Tenant administration
		restaurantHandler := handler.NewRestaurantHandler(queries, pool, func(db database.DBTX) handler.RestaurantStore {
			return database.New(db)
		})
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireSystemAdmin)
			restaurantHandler.RegisterRoutes(r)
		})

		// Restaurant-scoped routes
		r.Route("/restaurants/{rid}", func(r chi.Router) {
			r.Use(mw.RequireRestaurant)

			r.Route("/users", func(r chi.Router) {
				r.Use(mw.RequirePermission(checker, permission.ViewStaff, permission.ManageStaff))
				handler.NewUserHandler(queries).RegisterRoutes(r)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Use(mw.RequirePermission(checker, permission.ViewMenuItems, permission.ManageMenuItems, permission.ViewPOS))
				handler.NewCategoryHandler(queries).RegisterRoutes(r)
			})

			r.Route("/menu-items", func(r chi.Router) {
				r.Use(mw.RequirePermission(checker, permission.ViewMenuItems, permission.ManageMenuItems, permission.ViewPOS))
				handler.NewMenuItemHandler(queries, pool, func(db database.DBTX) handler.MenuItemStore {
					return database.New(db)
				}).RegisterRoutes(r)
			})

			r.Route("/menu-sets", func(r chi.Router) {
				r.Use(mw.RequirePermission(checker, permission.ViewMenuItems, permission.ManageMenuItems, permission.ViewPOS))
				handler.NewMenuSetHandler(queries, pool, func(db database.DBTX) handler.MenuSetStore {
					return database.New(db)
				}).RegisterRoutes(r)
			})

			r.Route("/inventory", func(r chi.Router) {
				r.Use(mw.RequirePermission(checker, permission.ViewInventory, permission.ManageInventory))
				handler.NewInventoryHandler(queries, lowStock).RegisterRoutes(r)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Use(mw.RequirePermission(checker, permission.ViewOrders, permission.ManageOrders, permission.ViewPOS))
				handler.NewOrderHandler(orderService, queries, notifier).RegisterRoutes(r)
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Use(mw.RequirePermission(checker, permission.ViewPOS))
				handler.NewCheckoutHandler(orderService, queries, guard).RegisterRoutes(r)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Use(mw.RequirePermission(checker, permission.ViewReports, permission.ViewAnalytics))
				handler.NewReportsHandler(queries).RegisterRoutes(r)
			})

			r.Route("/tables", func(r chi.Router) {
				r.Use(mw.RequirePermission(checker, permission.ViewTables, permission.ViewPOS))
				handler.NewTableHandler(cfg.OrderBaseURL).RegisterRoutes(r)
			})

			// Without an LLM key the route answers 503 to every member.
			r.Route("/chat", func(r chi.Router) {
				chatHandler := handler.NewChatHandler(nil)
				if deps.LLM != nil {
					r.Use(mw.RequirePermission(checker, permission.UseAssistant))
					chatHandler = handler.NewChatHandler(chat.NewAssistant(queries, deps.LLM, snapshots))
				}
				chatHandler.RegisterRoutes(r)
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireSystemAdmin)
				restaurantHandler.RegisterRestaurantRoutes(r)
			})
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
