// Package postal resolves Indian PIN codes to district and state.
package postal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidPin is returned when the service does not know the PIN.
	ErrInvalidPin = errors.New("postal: invalid PIN code")
	// ErrUnavailable wraps failures to reach or decode the lookup service.
	ErrUnavailable = errors.New("postal: lookup unavailable")
)

type Place struct {
	District string `json:"district"`
	State    string `json:"state"`
	Country  string `json:"country"`
}

type reply struct {
	Status     string `json:"Status"`
	PostOffice []struct {
		District string `json:"District"`
		State    string `json:"State"`
		Country  string `json:"Country"`
	} `json:"PostOffice"`
}

type Client struct {
	http   *resty.Client
	logger zerolog.Logger
}

func New(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		logger: logger.With().Str("component", "postal").Logger(),
	}
}

// Lookup returns the first post office registered for pin.
func (c *Client) Lookup(ctx context.Context, pin string) (Place, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("pin", pin).
		Get("/pincode/{pin}")
	if err != nil {
		c.logger.Error().Err(err).Str("pin", pin).Msg("postal lookup failed")
		return Place{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var replies []reply
	if err := json.Unmarshal(resp.Body(), &replies); err != nil {
		c.logger.Error().Err(err).Str("pin", pin).Int("status", resp.StatusCode()).Msg("postal reply not decodable")
		return Place{}, fmt.Errorf("%w: status %d: %v", ErrUnavailable, resp.StatusCode(), err)
	}
	if len(replies) == 0 || replies[0].Status != "Success" || len(replies[0].PostOffice) == 0 {
		return Place{}, ErrInvalidPin
	}

	po := replies[0].PostOffice[0]
	country := po.Country
	if country == "" {
		country = "India"
	}
	return Place{District: po.District, State: po.State, Country: country}, nil
}
