package remote

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/http2"

	"github.com/qick-go/qick/internal/auth"
	"github.com/qick-go/qick/internal/soc"
)

// ClientOptions configures NewClient.
type ClientOptions struct {
	// H2C speaks HTTP/2 with prior knowledge over cleartext TCP.
	H2C bool
	// Secret signs a bearer token per request when non-empty.
	Secret   string
	Subject  string
	TokenTTL time.Duration
	Timeout  time.Duration
}

// Client calls the operations a board exposes.
type Client struct {
	url        string
	httpClient *http.Client
	verifier   *auth.Verifier
	subject    string
	tokenTTL   time.Duration
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ClientOptions) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL required")
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.TokenTTL == 0 {
		opts.TokenTTL = time.Minute
	}
	if opts.Subject == "" {
		opts.Subject = "qick-client"
	}

	c := &Client{
		url:        strings.TrimSuffix(baseURL, "/") + RPCPath,
		httpClient: &http.Client{Timeout: opts.Timeout},
		subject:    opts.Subject,
		tokenTTL:   opts.TokenTTL,
	}
	if opts.H2C {
		c.httpClient.Transport = &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		}
	}
	if opts.Secret != "" {
		v, err := auth.NewVerifier(opts.Secret)
		if err != nil {
			return nil, err
		}
		c.verifier = v
	}
	return c, nil
}

// Call invokes method with positional params and decodes the result into out.
// JSON-RPC errors are returned as *Error.
func (c *Client) Call(ctx context.Context, method string, out interface{}, params ...interface{}) error {
	raw := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode param: %w", err)
		}
		raw = append(raw, data)
	}

	id := uuid.NewString()
	body, err := json.Marshal(&Request{JSONRPC: Version, Method: method, Params: raw, ID: id})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.verifier != nil {
		token, err := c.verifier.Issue(c.subject, c.tokenTTL)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("call %s: %s", method, httpResp.Status)
	}

	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return fmt.Errorf("decode response (%s): %w", httpResp.Status, err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if resp.ID != id {
		return fmt.Errorf("response id %v does not match request id %s", resp.ID, id)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, out interface{}, arg interface{}, opts []soc.ChannelOption) error {
	if ch := channelsToParams(opts); ch != nil {
		return c.Call(ctx, method, out, arg, ch)
	}
	return c.Call(ctx, method, out, arg)
}

// GetConfig fetches the board's configuration snapshot.
func (c *Client) GetConfig(ctx context.Context) (soc.Snapshot, error) {
	var snap soc.Snapshot
	if err := c.Call(ctx, soc.OpGetConfig, &snap); err != nil {
		return nil, err
	}
	if snap == nil {
		snap = soc.Snapshot{}
	}
	return snap, nil
}

// AdjustFrequency asks the board for the achievable frequency nearest f.
func (c *Client) AdjustFrequency(ctx context.Context, f float64, opts ...soc.ChannelOption) (float64, error) {
	var out float64
	err := c.call(ctx, soc.OpAdjustFreq, &out, f, opts)
	return out, err
}

func (c *Client) UsToCycles(ctx context.Context, us float64, opts ...soc.ChannelOption) (int, error) {
	var out int
	err := c.call(ctx, soc.OpUsToCycles, &out, us, opts)
	return out, err
}

func (c *Client) UsToCyclesBulk(ctx context.Context, us []float64, opts ...soc.ChannelOption) ([]int, error) {
	if us == nil {
		us = []float64{}
	}
	var out []int
	err := c.call(ctx, soc.OpUsToCycles, &out, us, opts)
	return out, err
}

func (c *Client) CyclesToUs(ctx context.Context, cycles int, opts ...soc.ChannelOption) (float64, error) {
	var out float64
	err := c.call(ctx, soc.OpCyclesToUs, &out, cycles, opts)
	return out, err
}

func (c *Client) CyclesToUsBulk(ctx context.Context, cycles []int, opts ...soc.ChannelOption) ([]float64, error) {
	if cycles == nil {
		cycles = []int{}
	}
	var out []float64
	err := c.call(ctx, soc.OpCyclesToUs, &out, cycles, opts)
	return out, err
}
