package service

import (
	"context"
	"errors"
	"testing"

	"github.com/teloven/marketplace/order-engine/internal/models"
)

func TestCreateOrder(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	order, err := env.engine.CreateOrder(ctx, "listing-1", "buyer-1")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	if order.Status != models.StatusCreated {
		t.Errorf("status = %s, want CREATED", order.Status)
	}
	if order.Price != 1000 || order.PlatformFee != 60 || order.Total != 1060 {
		t.Errorf("amounts = %d/%d/%d, want 1000/60/1060", order.Price, order.PlatformFee, order.Total)
	}
	if order.Total != order.Price+order.PlatformFee {
		t.Error("total invariant broken")
	}
	if order.SellerID != "seller-1" || order.BuyerID != "buyer-1" {
		t.Errorf("parties = %s/%s", order.BuyerID, order.SellerID)
	}
	if order.ID == "" {
		t.Error("order id not generated")
	}

	stored, err := env.orders.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("order not persisted: %v", err)
	}
	if stored.Status != models.StatusCreated {
		t.Errorf("persisted status = %s", stored.Status)
	}

	env.flushAudit()
	if got := env.auditDB.byAction("order.created"); len(got) != 1 {
		t.Errorf("order.created audit entries = %d, want 1", len(got))
	}
}

func TestCreateOrder_ListingNotFound(t *testing.T) {
	env := newTestEnv()

	_, err := env.engine.CreateOrder(context.Background(), "missing", "buyer-1")
	if !errors.Is(err, models.ErrListingNotFound) {
		t.Fatalf("err = %v, want ErrListingNotFound", err)
	}
}

func TestCreateOrder_InactiveListing(t *testing.T) {
	env := newTestEnv()
	env.listings.listings["listing-2"] = &models.Listing{
		ID: "listing-2", SellerID: "seller-1", Price: 500, Currency: "CLP", Active: false,
	}

	_, err := env.engine.CreateOrder(context.Background(), "listing-2", "buyer-1")
	if !errors.Is(err, models.ErrListingNotFound) {
		t.Fatalf("err = %v, want ErrListingNotFound", err)
	}
}

func TestInitiateCheckout(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	order, err := env.engine.CreateOrder(ctx, "listing-1", "buyer-1")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	session, err := env.engine.InitiateCheckout(ctx, order.ID, "buyer-1")
	if err != nil {
		t.Fatalf("InitiateCheckout: %v", err)
	}
	if session.SessionID == "" || session.RedirectURL == "" {
		t.Errorf("incomplete session: %+v", session)
	}

	stored, _ := env.orders.GetByID(ctx, order.ID)
	if stored.ProviderSessionID != session.SessionID {
		t.Errorf("session id not persisted: %q", stored.ProviderSessionID)
	}
	if stored.Status != models.StatusCreated {
		t.Errorf("checkout must not change status, got %s", stored.Status)
	}
}

func TestInitiateCheckout_Forbidden(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	order, _ := env.engine.CreateOrder(ctx, "listing-1", "buyer-1")

	_, err := env.engine.InitiateCheckout(ctx, order.ID, "someone-else")
	if !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if env.gateway.createCalls != 0 {
		t.Errorf("gateway called %d times, want 0", env.gateway.createCalls)
	}
}

func TestInitiateCheckout_InvalidState(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	order, _ := env.engine.CreateOrder(ctx, "listing-1", "buyer-1")
	env.orders.MarkPaid(ctx, order.ID, "pay-1", order.CreatedAt)

	_, err := env.engine.InitiateCheckout(ctx, order.ID, "buyer-1")
	var invalid *models.InvalidStateError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidStateError", err)
	}
	if invalid.Current != models.StatusPaidInCustody {
		t.Errorf("Current = %s, want PAID_IN_CUSTODY", invalid.Current)
	}
	if env.gateway.createCalls != 0 {
		t.Errorf("gateway called %d times, want 0", env.gateway.createCalls)
	}
}

func TestInitiateCheckout_GatewayError(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	order, _ := env.engine.CreateOrder(ctx, "listing-1", "buyer-1")
	env.gateway.sessionErr = &models.GatewayError{Op: "create_session", Err: context.DeadlineExceeded}

	_, err := env.engine.InitiateCheckout(ctx, order.ID, "buyer-1")
	var gwErr *models.GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("err = %v, want GatewayError", err)
	}

	// Timeout leaves the order in CREATED, retryable by the client.
	stored, _ := env.orders.GetByID(ctx, order.ID)
	if stored.Status != models.StatusCreated {
		t.Errorf("status = %s, want CREATED", stored.Status)
	}
}

func TestFullLifecycle(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	order, _ := env.engine.CreateOrder(ctx, "listing-1", "buyer-1")
	env.orders.MarkPaid(ctx, order.ID, "pay-1", order.CreatedAt)

	steps := []struct {
		name string
		fn   func(context.Context, string, string) (*models.Order, error)
		want models.OrderStatus
	}{
		{"delivered", env.engine.MarkDelivered, models.StatusDeliveredMarked},
		{"confirmed", env.engine.ConfirmByBuyer, models.StatusConfirmedByBuyer},
		{"payout initiated", env.engine.InitiatePayout, models.StatusPayoutInitiated},
		{"paid out", env.engine.CompletePayout, models.StatusPaidOut},
	}

	for _, step := range steps {
		updated, err := step.fn(ctx, order.ID, "actor-1")
		if err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if updated.Status != step.want {
			t.Fatalf("%s: status = %s, want %s", step.name, updated.Status, step.want)
		}
	}

	// Each forward edge was published downstream.
	if len(env.pub.changes) != len(steps) {
		t.Errorf("published %d state changes, want %d", len(env.pub.changes), len(steps))
	}
}

func TestTransition_WrongSourceState(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	order, _ := env.engine.CreateOrder(ctx, "listing-1", "buyer-1")

	// Still CREATED, not PAID_IN_CUSTODY.
	_, err := env.engine.MarkDelivered(ctx, order.ID, "seller-1")
	var invalid *models.InvalidStateError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidStateError", err)
	}
	if invalid.Current != models.StatusCreated {
		t.Errorf("Current = %s, want CREATED", invalid.Current)
	}
}

func TestCancel(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	t.Run("from created", func(t *testing.T) {
		order, _ := env.engine.CreateOrder(ctx, "listing-1", "buyer-1")
		updated, err := env.engine.Cancel(ctx, order.ID, "buyer-1")
		if err != nil {
			t.Fatalf("Cancel: %v", err)
		}
		if updated.Status != models.StatusCancelled {
			t.Errorf("status = %s, want CANCELLED", updated.Status)
		}
	})

	t.Run("after custody", func(t *testing.T) {
		order, _ := env.engine.CreateOrder(ctx, "listing-1", "buyer-1")
		env.orders.MarkPaid(ctx, order.ID, "pay-1", order.CreatedAt)

		_, err := env.engine.Cancel(ctx, order.ID, "buyer-1")
		var invalid *models.InvalidStateError
		if !errors.As(err, &invalid) {
			t.Fatalf("err = %v, want InvalidStateError", err)
		}
		if invalid.Current != models.StatusPaidInCustody {
			t.Errorf("Current = %s, want PAID_IN_CUSTODY", invalid.Current)
		}
	})
}

func TestOpenDispute(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	t.Run("from custody", func(t *testing.T) {
		order, _ := env.engine.CreateOrder(ctx, "listing-1", "buyer-1")
		env.orders.MarkPaid(ctx, order.ID, "pay-1", order.CreatedAt)

		updated, err := env.engine.OpenDispute(ctx, order.ID, "buyer-1")
		if err != nil {
			t.Fatalf("OpenDispute: %v", err)
		}
		if updated.Status != models.StatusDisputeOpened {
			t.Errorf("status = %s", updated.Status)
		}
	})

	t.Run("from delivered", func(t *testing.T) {
		order, _ := env.engine.CreateOrder(ctx, "listing-1", "buyer-1")
		env.orders.MarkPaid(ctx, order.ID, "pay-1", order.CreatedAt)
		env.engine.MarkDelivered(ctx, order.ID, "seller-1")

		updated, err := env.engine.OpenDispute(ctx, order.ID, "buyer-1")
		if err != nil {
			t.Fatalf("OpenDispute: %v", err)
		}
		if updated.Status != models.StatusDisputeOpened {
			t.Errorf("status = %s", updated.Status)
		}
	})

	t.Run("from created", func(t *testing.T) {
		order, _ := env.engine.CreateOrder(ctx, "listing-1", "buyer-1")

		_, err := env.engine.OpenDispute(ctx, order.ID, "buyer-1")
		var invalid *models.InvalidStateError
		if !errors.As(err, &invalid) {
			t.Fatalf("err = %v, want InvalidStateError", err)
		}
	})
}
