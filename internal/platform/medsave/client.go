// Package medsave is the client for the remote MedSave prescription API.
// Every call is a query string action against one entity and every response
// is wrapped in an {ok, data, error} envelope.
package medsave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// ErrTransport marks failures to reach the API or to decode its reply.
var ErrTransport = errors.New("medsave: transport failure")

// APIError is an ok:false reply.
type APIError struct {
	Action  string
	Entity  Entity
	Message string
}

func (e *APIError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("medsave %s: %s", e.Action, e.Message)
	}
	return fmt.Sprintf("medsave %s %s: %s", e.Action, e.Entity, e.Message)
}

type Entity string

const (
	Hospitals          Entity = "hospitals"
	Doctors            Entity = "doctors"
	Patients           Entity = "patients"
	Prescriptions      Entity = "prescriptions"
	MedicalHistories   Entity = "medical_histories"
	SurgicalHistories  Entity = "surgical_histories"
	Hypersensitivities Entity = "hypersensitivities"
	Vitals             Entity = "vitals"
	PhysicalExams      Entity = "physical_exams"
)

const (
	actionList   = "list"
	actionGet    = "get"
	actionSave   = "save"
	actionDelete = "delete"
	actionBundle = "save_prescription_bundle"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
	Retries int
}

type Client struct {
	http   *resty.Client
	logger zerolog.Logger
}

type envelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// Page is the data of a list action.
type Page[T any] struct {
	Items []T     `json:"items"`
	Total FlexInt `json:"total"`
}

// ListOptions are the paging and filter parameters of a list action.
type ListOptions struct {
	Limit   int
	Offset  int
	Filters map[string]string
}

func (o ListOptions) query() map[string]string {
	q := make(map[string]string, len(o.Filters)+2)
	for k, v := range o.Filters {
		if v != "" {
			q[k] = v
		}
	}
	if o.Limit > 0 {
		q["limit"] = strconv.Itoa(o.Limit)
	}
	if o.Offset > 0 {
		q["offset"] = strconv.Itoa(o.Offset)
	}
	return q
}

func New(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	hc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json").
		AddRetryCondition(retryReads)

	return &Client{
		http:   hc,
		logger: logger.With().Str("component", "medsave").Logger(),
	}
}

// retryReads retries failed reads only. Saves and deletes are not repeated.
func retryReads(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
		return false
	}
	if resp.Request.QueryParam.Get("action") == actionDelete {
		return false
	}
	return err != nil || resp.StatusCode() >= http.StatusInternalServerError
}

func (c *Client) do(ctx context.Context, method, action string, entity Entity, query map[string]string, body any) (json.RawMessage, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("action", action).
		SetQueryParams(query)
	if entity != "" {
		req.SetQueryParam("entity", string(entity))
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, "")
	if err != nil {
		c.logger.Error().Err(err).
			Str("action", action).
			Str("entity", string(entity)).
			Msg("medsave request failed")
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, action, entity, err)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		c.logger.Error().Err(err).
			Str("action", action).
			Str("entity", string(entity)).
			Int("status", resp.StatusCode()).
			Msg("medsave reply is not an envelope")
		return nil, fmt.Errorf("%w: %s %s: status %d: %v", ErrTransport, action, entity, resp.StatusCode(), err)
	}

	c.logger.Debug().
		Str("action", action).
		Str("entity", string(entity)).
		Int("status", resp.StatusCode()).
		Bool("ok", env.OK).
		Dur("latency", time.Since(start)).
		Msg("medsave request")

	if !env.OK {
		msg := env.Error
		if msg == "" {
			msg = "API error"
		}
		return nil, &APIError{Action: action, Entity: entity, Message: msg}
	}
	return env.Data, nil
}

func decodeData[T any](data json.RawMessage, action string, entity Entity) (T, error) {
	var v T
	if len(data) == 0 || string(data) == "null" {
		return v, nil
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%w: %s %s: decode data: %v", ErrTransport, action, entity, err)
	}
	return v, nil
}

func list[T any](ctx context.Context, c *Client, entity Entity, opts ListOptions) (Page[T], error) {
	data, err := c.do(ctx, http.MethodGet, actionList, entity, opts.query(), nil)
	if err != nil {
		return Page[T]{}, err
	}
	page, err := decodeData[Page[T]](data, actionList, entity)
	if err != nil {
		return Page[T]{}, err
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page, nil
}

func get[T any](ctx context.Context, c *Client, entity Entity, id string) (T, error) {
	var zero T
	if id == "" {
		return zero, &APIError{Action: actionGet, Entity: entity, Message: "id is required"}
	}
	data, err := c.do(ctx, http.MethodGet, actionGet, entity, map[string]string{"id": id}, nil)
	if err != nil {
		return zero, err
	}
	return decodeData[T](data, actionGet, entity)
}

type saved struct {
	ID FlexString `json:"id"`
}

// save creates the record when id is empty and updates it otherwise. It
// returns the id the API reports, falling back to id when none is echoed.
func (c *Client) save(ctx context.Context, entity Entity, id string, body any) (string, error) {
	q := map[string]string{}
	if id != "" {
		q["id"] = id
	}
	data, err := c.do(ctx, http.MethodPost, actionSave, entity, q, body)
	if err != nil {
		return "", err
	}
	s, err := decodeData[saved](data, actionSave, entity)
	if err != nil {
		return "", err
	}
	if s.ID == "" {
		return id, nil
	}
	return string(s.ID), nil
}

// Delete removes one record of entity.
func (c *Client) Delete(ctx context.Context, entity Entity, id string) error {
	if id == "" {
		return &APIError{Action: actionDelete, Entity: entity, Message: "id is required"}
	}
	_, err := c.do(ctx, http.MethodGet, actionDelete, entity, map[string]string{"id": id}, nil)
	return err
}
