// Package rest calls the venue's public REST endpoints. Responses share the
// websocket envelope, so results decode into the same models.
package rest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cdcflow/apierr"
	"cdcflow/codec"
	"cdcflow/logger"
	"cdcflow/models"
)

const (
	methodGetInstruments = "public/get-instruments"
	methodGetTicker      = "public/get-ticker"
	methodGetBook        = "public/get-book"

	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 16 << 20
)

type Client struct {
	baseURL *url.URL
	http    *http.Client
	log     *logger.Log
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// NewClient returns a client for baseURL, e.g. https://api.crypto.com/v2/.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, apierr.MissingConfiguration("rest_url")
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, apierr.Unclassified(fmt.Errorf("parse rest url: %w", err))
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.log.WithComponent("rest").WithFields(logger.Fields{"base_url": u.String()}).Info("rest client initialized")
	return c, nil
}

// GetInstruments lists every tradable instrument.
func (c *Client) GetInstruments(ctx context.Context) (models.Instruments, error) {
	result, err := c.get(ctx, methodGetInstruments, nil)
	if err != nil {
		return models.Instruments{}, err
	}
	return models.DecodeInstruments(result)
}

// GetTicker returns the ticker of one instrument.
func (c *Client) GetTicker(ctx context.Context, instrument string) (models.TickerUpdate, error) {
	if instrument == "" {
		return models.TickerUpdate{}, apierr.InvalidRequest("instrument_name")
	}
	result, err := c.get(ctx, methodGetTicker, url.Values{"instrument_name": {instrument}})
	if err != nil {
		return models.TickerUpdate{}, err
	}
	return models.DecodeTicker(result)
}

// GetBook returns the top depth levels of one instrument's book.
func (c *Client) GetBook(ctx context.Context, instrument string, depth int) (models.BookUpdate, error) {
	if instrument == "" {
		return models.BookUpdate{}, apierr.InvalidRequest("instrument_name")
	}
	q := url.Values{"instrument_name": {instrument}}
	if depth > 0 {
		q.Set("depth", strconv.Itoa(depth))
	}
	result, err := c.get(ctx, methodGetBook, q)
	if err != nil {
		return models.BookUpdate{}, err
	}
	return models.DecodeBook(result)
}

func (c *Client) get(ctx context.Context, method string, query url.Values) ([]byte, error) {
	log := c.log.WithComponent("rest").WithFields(logger.Fields{"method": method})

	reqURL := c.baseURL.JoinPath(method)
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, apierr.Unclassified(fmt.Errorf("create request: %w", err))
	}

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Warn("request failed")
		return nil, apierr.Unclassified(fmt.Errorf("%s: %w", method, err))
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, apierr.Unclassified(fmt.Errorf("read %s response: %w", method, err))
	}

	env, err := codec.DecodeText(body)
	if err != nil {
		log.WithError(err).WithFields(logger.Fields{"status": res.StatusCode}).Warn("failed to decode response")
		return nil, err
	}
	if !env.Succeeded() {
		msg := ""
		if env.Message != nil {
			msg = *env.Message
		}
		log.WithFields(logger.Fields{"code": env.StatusCode(), "message": msg}).Warn("request rejected")
		return nil, apierr.Unclassified(fmt.Errorf("%s rejected with code %d: %s", method, env.StatusCode(), msg))
	}
	if res.StatusCode != http.StatusOK {
		return nil, apierr.Unclassified(fmt.Errorf("%s: unexpected status %d", method, res.StatusCode))
	}

	logger.LogPerformanceEntry(log, "rest", method, time.Since(start), nil)
	return env.Result, nil
}
