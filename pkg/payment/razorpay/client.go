package razorpay

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/rs/zerolog"

	"github.com/ezhealth/appointment-api/pkg/circuitbreaker"
	"github.com/ezhealth/appointment-api/pkg/payment"
)

// orderAPI is the slice of the SDK the client needs.
type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type Client struct {
	orders orderAPI
	cb     *circuitbreaker.CircuitBreaker
	logger zerolog.Logger
}

func NewClient(keyID, keySecret string, logger zerolog.Logger) *Client {
	sdk := razorpay.NewClient(keyID, keySecret)
	return newClient(sdk.Order, logger)
}

func newClient(orders orderAPI, logger zerolog.Logger) *Client {
	return &Client{
		orders: orders,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "razorpay",
			MaxFailures: 5,
		}),
		logger: logger.With().Str("component", "razorpay").Logger(),
	}
}

// CreateOrder calls the Orders API. The SDK is blocking, so ctx only bounds
// how long the caller waits.
func (c *Client) CreateOrder(ctx context.Context, req payment.OrderRequest) (*payment.Order, error) {
	data := map[string]interface{}{
		"amount":   req.AmountMinor,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if len(req.Notes) > 0 {
		notes := make(map[string]interface{}, len(req.Notes))
		for k, v := range req.Notes {
			notes[k] = v
		}
		data["notes"] = notes
	}

	type result struct {
		body map[string]interface{}
		err  error
	}
	done := make(chan result, 1)
	go func() {
		var body map[string]interface{}
		err := c.cb.Execute(func() error {
			var err error
			body, err = c.orders.Create(data, nil)
			return err
		})
		done <- result{body, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", payment.ErrGatewayUnavailable, ctx.Err())
	case res := <-done:
		if res.err != nil {
			c.logger.Error().Err(res.err).Str("receipt", req.Receipt).Msg("order creation failed")
			return nil, fmt.Errorf("%w: %v", payment.ErrGatewayUnavailable, res.err)
		}
		return parseOrder(res.body)
	}
}

func parseOrder(body map[string]interface{}) (*payment.Order, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("%w: response has no order id", payment.ErrGatewayUnavailable)
	}

	order := &payment.Order{ID: id}
	order.Currency, _ = body["currency"].(string)
	order.Receipt, _ = body["receipt"].(string)
	order.Status, _ = body["status"].(string)
	switch amount := body["amount"].(type) {
	case float64:
		order.Amount = int64(amount)
	case int64:
		order.Amount = amount
	case int:
		order.Amount = int64(amount)
	}
	return order, nil
}

var _ payment.Gateway = (*Client)(nil)
