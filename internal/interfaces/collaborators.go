package interfaces

import (
	"context"

	"github.com/teloven/marketplace/order-engine/internal/models"
)

// PaymentGateway is the remote payment provider. Both calls are blocking
// I/O with bounded timeouts; the engine never holds a lock across them.
type PaymentGateway interface {
	CreateSession(ctx context.Context, amount int64, currency, externalReference string) (*models.CheckoutSession, error)
	ResolvePayment(ctx context.Context, paymentID string) (*models.PaymentInfo, error)
}

// ListingDirectory resolves listing ids to active listings. Returns
// models.ErrListingNotFound for absent or inactive listings.
type ListingDirectory interface {
	GetActiveListing(ctx context.Context, listingID string) (*models.Listing, error)
}

// StatePublisher broadcasts order state changes to downstream consumers.
// Publication is best-effort relative to the transition itself.
type StatePublisher interface {
	PublishStateChange(ctx context.Context, orderID string, from, to models.OrderStatus) error
}
