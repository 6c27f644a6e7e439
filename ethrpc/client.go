package ethrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/ThinkiumGroup/go-common/log"
	"github.com/sirupsen/logrus"
)

var (
	ErrNoResult   = errors.New("no result in JSON-RPC response")
	ErrBadVersion = errors.New("invalid JSON-RPC version in response")
)

const (
	vsn                = "2.0"
	contentType        = "application/json"
	maxResponseSize    = 5 * 1024 * 1024
	defaultDialTimeout = 10 * time.Second // used if context has no deadline
)

// Client is a JSON-RPC client over HTTP.
type Client struct {
	url     string
	client  *http.Client
	headers http.Header
	idgen   uint64
	logger  logrus.FieldLogger
}

// DialContext creates a new RPC client for rawurl, only http and https are supported.
func DialContext(ctx context.Context, rawurl string) (*Client, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http", "https":
		return DialHTTP(rawurl)
	default:
		return nil, fmt.Errorf("no known transport for URL scheme %q", u.Scheme)
	}
}

// DialHTTP creates a new RPC client that connects to an RPC server over HTTP.
func DialHTTP(endpoint string) (*Client, error) {
	return DialHTTPWithClient(endpoint, &http.Client{Timeout: defaultDialTimeout})
}

// DialHTTPWithClient creates a new RPC client that connects to an RPC server over HTTP
// using the provided HTTP Client.
func DialHTTPWithClient(endpoint string, client *http.Client) (*Client, error) {
	// Sanity check URL so we don't end up with a client that will fail every request.
	if _, err := url.Parse(endpoint); err != nil {
		return nil, err
	}
	headers := make(http.Header, 2)
	headers.Set("accept", contentType)
	headers.Set("content-type", contentType)
	return &Client{
		url:     endpoint,
		client:  client,
		headers: headers,
		logger:  log.WithField("L", "ETHRPC"),
	}, nil
}

func (c *Client) URL() string { return c.url }

func (c *Client) newMessage(method string, paramsIn ...interface{}) (*jsonrpcMessage, error) {
	msg := &jsonrpcMessage{Version: vsn, ID: c.nextID(), Method: method}
	if paramsIn != nil { // prevent sending "params":null
		var err error
		if msg.Params, err = json.Marshal(paramsIn); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

func (c *Client) nextID() json.RawMessage {
	id := atomic.AddUint64(&c.idgen, 1)
	return json.RawMessage(fmt.Sprintf("%d", id))
}

// CallContext performs a JSON-RPC call with the given arguments. If the context is
// canceled before the call has successfully returned, CallContext returns immediately.
//
// The result must be a pointer so that package json can unmarshal into it. You
// can also pass nil, in which case the result is ignored.
func (c *Client) CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	if result != nil && reflect.TypeOf(result).Kind() != reflect.Ptr {
		return fmt.Errorf("call result parameter must be pointer or nil interface: %v", result)
	}
	msg, err := c.newMessage(method, args...)
	if err != nil {
		return err
	}
	resp, err := c.sendHTTP(ctx, msg)
	if err != nil {
		c.logger.Debugf("[ETHRPC] %s to %s failed: %v", method, c.url, err)
		return err
	}
	switch {
	case resp.Error != nil:
		return resp.Error
	case len(resp.Result) == 0:
		return ErrNoResult
	case result == nil:
		return nil
	default:
		return json.Unmarshal(resp.Result, result)
	}
}

func (c *Client) sendHTTP(ctx context.Context, msg *jsonrpcMessage) (*jsonrpcMessage, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)
	req.ContentLength = int64(len(body))
	for k, vs := range c.headers {
		req.Header[k] = vs
	}
	hresp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer hresp.Body.Close()
	if hresp.StatusCode < 200 || hresp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s: %s", c.url, hresp.Status)
	}
	data, err := ioutil.ReadAll(io.LimitReader(hresp.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}
	var resp jsonrpcMessage
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	if resp.Version != vsn {
		return nil, ErrBadVersion
	}
	return &resp, nil
}

// A value of this type can a JSON-RPC request, notification, successful response or
// error response. Which one it is depends on the fields.
type jsonrpcMessage struct {
	Version string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Error   *jsonError      `json:"error,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

type jsonError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (err *jsonError) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("json-rpc error %d", err.Code)
	}
	return err.Message
}

func (err *jsonError) ErrorCode() int {
	return err.Code
}
