// Package client is the typed HTTP client of the node API, used by voters,
// poll authorities and the end to end tool.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/vocdoni/zktally/api"
	"github.com/vocdoni/zktally/log"
)

const (
	// HTTPGET is the method string used for calling Request()
	HTTPGET = http.MethodGet
	// HTTPPOST is the method string used for calling Request()
	HTTPPOST = http.MethodPost

	// DefaultRetries is how many times a request is sent when the
	// connection to the node fails.
	DefaultRetries = 3
	// DefaultTimeout bounds every request. Tally requests prove the result
	// and need much more, see SetTimeout.
	DefaultTimeout = 30 * time.Second

	retryDelay     = 500 * time.Millisecond
	maxLoggedBody  = 512
	transportBufSz = 1 << 20
)

// HTTPclient is the typed client of the node API.
type HTTPclient struct {
	c       *http.Client
	host    *url.URL
	retries int
}

// New returns a client for the node at host once it answers the ping
// endpoint.
func New(host string) (*HTTPclient, error) {
	hostURL, err := url.Parse(host)
	if err != nil {
		return nil, err
	}
	c := &HTTPclient{
		c: &http.Client{
			Transport: &http.Transport{
				IdleConnTimeout: DefaultTimeout,
				WriteBufferSize: transportBufSz,
				ReadBufferSize:  transportBufSz,
			},
			Timeout: DefaultTimeout,
		},
		retries: DefaultRetries,
	}
	if err := c.SetHostAddr(hostURL); err != nil {
		return nil, err
	}
	log.Debugw("http client created", "host", hostURL.String())
	return c, nil
}

// SetHostAddr points the client to another node, which must answer the
// ping endpoint.
func (c *HTTPclient) SetHostAddr(host *url.URL) error {
	prev := c.host
	c.host = host
	data, status, err := c.Request(HTTPGET, nil, nil, api.PingEndpoint)
	if err == nil && status != http.StatusOK {
		err = fmt.Errorf("ping failed with status %d: %s", status, data)
	}
	if err != nil {
		c.host = prev
		return err
	}
	return nil
}

// SetRetries configures the number of attempts of every request.
func (c *HTTPclient) SetRetries(n int) {
	c.retries = max(n, 1)
}

// SetTimeout configures the timeout of every request.
func (c *HTTPclient) SetTimeout(d time.Duration) {
	c.c.Timeout = d
	if tr, ok := c.c.Transport.(*http.Transport); ok {
		tr.ResponseHeaderTimeout = d
	}
}

// endpoint joins the path segments to the host and adds the query
// parameters, given as key, value pairs. A trailing unpaired key is dropped.
func (c *HTTPclient) endpoint(params []string, urlPath ...string) string {
	u := *c.host
	u.Path = path.Join(u.Path, path.Join(urlPath...))
	if len(params) > 1 {
		values := url.Values{}
		for i := 0; i+1 < len(params); i += 2 {
			values.Set(params[i], params[i+1])
		}
		u.RawQuery = values.Encode()
	}
	return u.String()
}

// Request sends a raw request and returns the response body and status.
// The jsonBody, if not nil, is sent encoded as JSON. Connection failures are
// retried; any response, whatever its status, is returned as is.
func (c *HTTPclient) Request(method string, jsonBody any, params []string, urlPath ...string) ([]byte, int, error) {
	var body []byte
	if jsonBody != nil {
		var err error
		if body, err = json.Marshal(jsonBody); err != nil {
			return nil, 0, fmt.Errorf("failed to marshal JSON: %w", err)
		}
	}
	target := c.endpoint(params, urlPath...)
	logged := body
	if len(logged) > maxLoggedBody {
		logged = logged[:maxLoggedBody]
	}
	log.Debugw("http client request", "type", method, "url", target, "body", string(logged))

	var lastErr error
	for attempt := 1; attempt <= max(c.retries, 1); attempt++ {
		req, err := http.NewRequest(method, target, bytes.NewReader(body))
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", err)
		}
		if jsonBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.c.Do(req)
		if err != nil {
			lastErr = err
			log.Warnw("http request failed", "error", err.Error(), "attempt", attempt, "retries", c.retries)
			time.Sleep(retryDelay)
			continue
		}
		data, err := io.ReadAll(resp.Body)
		if cerr := resp.Body.Close(); cerr != nil {
			log.Debugw("cannot close response body", "error", cerr.Error())
		}
		if err != nil {
			return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
		}
		return data, resp.StatusCode, nil
	}
	return nil, 0, fmt.Errorf("http request failed after %d attempts: %w", c.retries, lastErr)
}
