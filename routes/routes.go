package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/bellapacxx/bingo-live/controllers"
)

func SetupRoutes(r *gin.Engine, h *controllers.Handler) {
	r.GET("/health", controllers.Health)
	r.GET("/ws/events/:id", h.EventWebSocket)

	api := r.Group("/api")
	api.POST("/users", h.RegisterUser) // register or log in, returns a token
	api.GET("/events", h.ListEvents)
	api.GET("/events/:id", h.GetEvent)
	api.GET("/events/:id/patterns", h.EventPatterns)
	api.GET("/events/:id/numbers", h.CalledNumbers)
	api.GET("/patterns", h.ListPatterns)
	api.GET("/patterns/:name", h.GetPattern)
	api.GET("/cards/price", h.CardPrice)

	// ----------------------
	// Signed-in users
	// ----------------------
	authed := api.Group("", h.RequireAuth)
	authed.GET("/users/me", h.Me)
	authed.PUT("/users/me/phone", h.UpdatePhone)
	authed.GET("/users/me/balance", h.Balance)
	authed.GET("/users/me/transactions", h.Transactions)

	authed.POST("/events/:id/cards", h.PurchaseCards)
	authed.POST("/events/:id/cards/bulk", h.GenerateBulk) // sellers only, checked by the service
	authed.GET("/events/:id/cards/mine", h.MyCards)
	authed.POST("/events/:id/claims", h.ClaimWin)
	authed.GET("/cards/mine", h.MyCards)
	authed.GET("/cards/batches", h.SellerBatches) // sellers only, checked by the service
	authed.GET("/purchases/mine", h.MyPurchases)
	authed.GET("/cards/:card_id/status", h.CardStatus)

	authed.POST("/deposits", h.RequestDeposit)
	authed.GET("/deposits/mine", h.MyDeposits)
	authed.POST("/deposits/:id/confirm", h.ConfirmDeposit)
	authed.POST("/withdraw", h.Withdraw)
	authed.GET("/payment-methods", h.PaymentMethods)
	authed.GET("/rates", h.Rates)

	// ----------------------
	// Staff
	// ----------------------
	staff := authed.Group("", h.RequireStaff)
	staff.GET("/users/:telegram_id", h.GetUser)

	staff.POST("/events", h.CreateEvent)
	staff.PUT("/events/:id/patterns/allowed", h.SetAllowedPatterns)
	staff.POST("/events/:id/patterns/allowed", h.AddAllowedPatterns)
	staff.DELETE("/events/:id/patterns/allowed/:name", h.RemoveAllowedPattern)
	staff.POST("/events/:id/patterns/disabled", h.DisablePatterns)
	staff.DELETE("/events/:id/patterns/disabled/:name", h.EnablePattern)

	staff.POST("/patterns", h.CreatePattern)
	staff.POST("/patterns/validate", h.ValidatePattern)
	staff.POST("/patterns/:name/activate", h.ActivatePattern)
	staff.POST("/patterns/:name/deactivate", h.DeactivatePattern)

	staff.POST("/events/:id/numbers", h.CallNumber)
	staff.POST("/events/:id/numbers/draw", h.DrawNumber)
	staff.DELETE("/events/:id/numbers/last", h.UndoLastNumber)
	staff.DELETE("/events/:id/numbers", h.ResetNumbers)
	staff.POST("/events/:id/cards/house", h.GenerateHouse)
	staff.POST("/events/:id/cards/import", h.ImportCards)
	staff.GET("/cards/:card_id/verify", h.VerifyCard)
	staff.GET("/cards/:card_id/completed-by/:number", h.CompletedBy)

	staff.GET("/deposits/pending", h.PendingDeposits)
	staff.POST("/deposits/:id/approve", h.ApproveDeposit)
	staff.POST("/deposits/:id/reject", h.RejectDeposit)

	staff.GET("/payment-methods/all", h.AllPaymentMethods)
	staff.POST("/payment-methods", h.CreatePaymentMethod)
	staff.PATCH("/payment-methods/:id", h.UpdatePaymentMethod)
	staff.DELETE("/payment-methods/:id", h.DeletePaymentMethod)
	staff.PUT("/rates", h.UpdateRates)
}
