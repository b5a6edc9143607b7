package api

import (
	"context"       // Context for Redis operations
	"encoding/json" // Payload decoding
	"errors"        // Sentinel error matching
	"net/http"      // HTTP status codes

	"fortune_system/internal/purchase" // Purchase fulfillment
	"fortune_system/internal/utils"    // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
)

// paymentEventPayload mirrors the payment provider's completed-payment webhook
type paymentEventPayload struct {
	ExternalPaymentID string `json:"external_payment_id"` // Provider's event id
	PayerEmail        string `json:"payer_email"`         // Checkout email
	AmountTotal       int    `json:"amount_total"`        // Amount paid, minor units
	Metadata          struct {
		Quantity int  `json:"quantity"` // Credits purchased
		UserID   uint `json:"user_id"`  // Optional buyer-provided account id
	} `json:"metadata"` // Checkout metadata
}

// PaymentWebhookHandler receives completed-payment events from the payment
// provider. Delivery is at-least-once; the core de-duplicates, so this
// handler only authenticates, decodes and forwards.
func PaymentWebhookHandler(purchases *purchase.Service, secret string, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData() // Raw body, needed for the signature check
		if err != nil {
			// If the body is unreadable, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
			return
		}
		// Verify the HMAC signature before trusting anything in the body
		sig := c.GetHeader("X-Payment-Signature")
		if !utils.VerifySignature(secret, body, sig) {
			// Reject unsigned or tampered deliveries
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
			return
		}
		var payload paymentEventPayload // Decode the event
		if err := json.Unmarshal(body, &payload); err != nil {
			// If decoding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
			return
		}
		// Forward to the core; redeliveries come back as already-fulfilled
		result, err := purchases.Fulfill(purchase.PaymentEvent{
			ExternalPaymentID: payload.ExternalPaymentID, // De-duplication key
			PayerEmail:        payload.PayerEmail,        // Checkout email
			Quantity:          payload.Metadata.Quantity, // Credits purchased
			Amount:            payload.AmountTotal,       // Amount paid
			UserID:            payload.Metadata.UserID,   // Optional account id
		})
		// Map core outcomes to HTTP statuses
		if err != nil {
			switch {
			case errors.Is(err, purchase.ErrInvalidEvent), errors.Is(err, purchase.ErrInvalidQuantity):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				// Transient store failure: non-2xx makes the provider redeliver
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Fulfillment failed"})
			}
			return
		}
		// Invalidate the credited user's wallet cache
		utils.InvalidateUserCaches(context.Background(), rdb, result.UserID)
		// Acknowledge; redeliveries must also get a 2xx to stop the retries
		c.JSON(http.StatusOK, gin.H{
			"order_id":          result.OrderID,          // Order for this event
			"user_id":           result.UserID,           // Credited account
			"already_fulfilled": result.AlreadyFulfilled, // Redelivery flag
		})
	}
}
