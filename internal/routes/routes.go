package routes

import (
	"net/http"

	"github.com/Kevin-webdesign/smart-farm/internal/handlers"
	"github.com/Kevin-webdesign/smart-farm/internal/middleware"
	"github.com/Kevin-webdesign/smart-farm/internal/models"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware tells the browser it is safe for the frontend to send data
// to us.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "http://localhost:5173")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		// The browser sends an empty OPTIONS request first to check
		// permissions. Reply with 204 No Content.
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.Default()

	// CORS must be the very first thing the router uses.
	router.Use(CORSMiddleware())

	api := router.Group("/api")
	{
		// --- Ping Route (Public) ---
		api.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Auth Routes (Public) ---
		api.POST("/auth/register", h.RegisterUser)
		api.POST("/auth/login", h.Login)
		api.POST("/auth/forgot-password", h.ForgotPassword)
		api.POST("/auth/verify-otp", h.VerifyResetOtp)
		api.POST("/auth/reset-password", h.ResetPassword)

		// --- Public Dashboard ---
		api.GET("/transactions/public/all", h.GetPublicTransactions)

		// --- Protected Routes (Login Required) ---
		auth := api.Group("/")
		auth.Use(middleware.AuthMiddleware(h.DB))
		{
			auth.POST("/auth/logout", h.Logout)
			auth.GET("/profile", h.GetProfile)
			auth.PUT("/profile", h.UpdateProfile)

			// --- Crop Plans ---
			auth.POST("/crop-plans", h.CreateCropPlan)
			auth.GET("/crop-plans", h.GetMyCropPlans)
			auth.GET("/crop-plans/:id", h.GetCropPlan)
			auth.PUT("/crop-plans/:id", h.UpdateCropPlan)
			auth.DELETE("/crop-plans/:id", h.DeleteCropPlan)

			// --- Harvests ---
			auth.POST("/harvests", h.CreateHarvest)
			auth.GET("/harvests", h.GetHarvests)
			auth.GET("/harvests/stats", h.GetHarvestStats)
			auth.DELETE("/harvests/:id", h.DeleteHarvest)

			// --- Farm Transactions ---
			auth.POST("/transactions", h.CreateTransaction)
			auth.GET("/transactions", h.GetTransactions)
			auth.GET("/transactions/:id", h.GetTransaction)
			auth.PUT("/transactions/:id", h.UpdateTransaction)
			auth.DELETE("/transactions/:id", h.DeleteTransaction)

			// --- Inputs ---
			auth.POST("/inputs", h.CreateInput)
			auth.GET("/inputs", h.GetInputs)
			auth.GET("/inputs/:id", h.GetInput)
			auth.PUT("/inputs/:id", h.UpdateInput)
			auth.DELETE("/inputs/:id", h.DeleteInput)

			// --- Notifications ---
			auth.GET("/notifications", h.GetMyNotifications)
			auth.PUT("/notifications/:id/read", h.MarkNotificationRead)
			auth.PUT("/notifications/read-all", h.MarkAllNotificationsRead)

			// --- Assistant Chat ---
			auth.POST("/chat", h.SendChatMessage)
			auth.GET("/chat/history", h.GetChatHistory)

			// --- Staff Routes ---
			staff := auth.Group("/")
			staff.Use(middleware.RequireRoles(models.RoleStaff, models.RoleManager, models.RoleAdmin))
			{
				staff.GET("/crop-plans/all", h.GetAllCropPlans)
			}

			// --- Manager Routes ---
			manager := auth.Group("/")
			manager.Use(middleware.RequireRoles(models.RoleManager, models.RoleAdmin))
			{
				manager.POST("/notifications", h.CreateNotification)
				manager.POST("/notifications/broadcast", h.CreateBroadcast)
				manager.GET("/notifications/stats", h.GetNotificationStats)
			}

			// --- Admin Routes ---
			admin := auth.Group("/")
			admin.Use(middleware.RequireRoles(models.RoleAdmin))
			{
				admin.POST("/users", h.CreateUser)
				admin.GET("/users", h.GetAllUsers)
				admin.GET("/users/:id", h.GetUser)
				admin.PUT("/users/:id", h.UpdateUser)
				admin.DELETE("/users/:id", h.DeleteUser)
				admin.GET("/roles", h.GetRoles)
				admin.DELETE("/notifications/:id", h.DeleteNotification)

				// Run the background jobs on demand.
				admin.POST("/triggers/process", h.ProcessTriggers)
				admin.POST("/triggers/calendar-scan", h.RunCalendarScan)
				admin.POST("/triggers/transaction-scan", h.RunTransactionScan)
				admin.POST("/triggers/cleanup", h.RunCleanup)
			}
		}
	}

	return router
}
