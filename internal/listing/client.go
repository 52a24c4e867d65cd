// Package listing resolves listing ids against the listing service over
// NATS request/reply.
package listing

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/teloven/marketplace/order-engine/internal/models"
)

const (
	subject        = "listing.get"
	requestTimeout = 5 * time.Second
)

type Client struct {
	nc *nats.Conn
}

func NewClient(nc *nats.Conn) *Client {
	return &Client{nc: nc}
}

type lookupReq struct {
	ListingID string `json:"listing_id"`
}

type lookupResp struct {
	Found   bool           `json:"found"`
	Listing models.Listing `json:"listing"`
}

func (c *Client) GetActiveListing(ctx context.Context, listingID string) (*models.Listing, error) {
	req, err := json.Marshal(lookupReq{ListingID: listingID})
	if err != nil {
		return nil, err
	}

	timeout := requestTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	msg, err := c.nc.Request(subject, req, timeout)
	if err != nil {
		return nil, err
	}

	var resp lookupResp
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return nil, err
	}
	if !resp.Found || !resp.Listing.Active {
		return nil, models.ErrListingNotFound
	}
	return &resp.Listing, nil
}
