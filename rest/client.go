// Copyright 2026 The Rosvisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rosvisor/rosvisor"
)

// Client provides a typed view of a remote supervisor.  It is safe
// for concurrent use.
type Client struct {
	user   string // HTTP Basic-Auth
	pass   string
	base   string // URI to root of tree on server
	auth   bool
	client *http.Client
}

// NewClient returns a Client using the given http.Client (nil selects
// http.DefaultClient) and base URL.
func NewClient(client *http.Client, base string) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{client: client, base: base}
}

func (c *Client) SetAuth(user string, pass string) {
	c.user = user
	c.pass = pass
	c.auth = true
}

func (c *Client) url(name string) string {
	if name == "" {
		return c.base + "/nodes"
	}
	return c.base + "/nodes/" + url.PathEscape(name)
}

// do issues the request and decodes the response into v (which may be
// nil).  Server failures come back as *Error.  The returned string is
// the response Etag, when the server supplied one.
func (c *Client) do(ctx context.Context, method, u string, body, v interface{}) (string, error) {
	var rd io.Reader
	if body != nil {
		b, e := json.Marshal(body)
		if e != nil {
			return "", e
		}
		rd = bytes.NewReader(b)
	}
	req, e := http.NewRequestWithContext(ctx, method, u, rd)
	if e != nil {
		return "", e
	}
	if body != nil {
		req.Header.Set("Content-Type", mimeJson)
	}
	if c.auth {
		req.SetBasicAuth(c.user, c.pass)
	}
	res, e := c.client.Do(req)
	if e != nil {
		return "", e
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotModified {
		return "", errNotModified
	}
	if res.StatusCode != http.StatusOK {
		re := &Error{Code: res.StatusCode}
		if json.NewDecoder(res.Body).Decode(re) != nil || re.Message == "" {
			re.Message = res.Status
		}
		return "", re
	}
	if v != nil {
		if e = json.NewDecoder(res.Body).Decode(v); e != nil {
			return "", e
		}
	}
	return res.Header.Get("Etag"), nil
}

var errNotModified = &Error{Code: http.StatusNotModified, Message: "Not modified"}

// Info retrieves top-level information about the supervisor.
func (c *Client) Info(ctx context.Context) (*rosvisor.SupervisorInfo, error) {
	info := &rosvisor.SupervisorInfo{}
	if _, e := c.do(ctx, "GET", c.base+"/", nil, info); e != nil {
		return nil, e
	}
	return info, nil
}

// Launch asks the supervisor to start a node.  A nil error is an
// acceptance acknowledgment: the record is registered and the spawn
// has been issued, not that the node finished initializing.
func (c *Client) Launch(ctx context.Context, spec rosvisor.LaunchSpec) error {
	_, e := c.do(ctx, "POST", c.url(""), &spec, nil)
	return e
}

// Nodes returns the names of all registered nodes, along with an Etag
// usable with WatchNodes.
func (c *Client) Nodes(ctx context.Context) ([]string, string, error) {
	var names []string
	etag, e := c.do(ctx, "GET", c.url(""), nil, &names)
	if e != nil {
		return nil, "", e
	}
	return names, etag, nil
}

// WatchNodes long-polls for a change in the node list relative to the
// given Etag.  It returns the updated list, or the old Etag and a nil
// list if the server saw no change within the timeout.
func (c *Client) WatchNodes(ctx context.Context, etag string, timeout time.Duration) ([]string, string, error) {
	u := c.url("") + "?timeout=" + strconv.Itoa(int(timeout/time.Second))
	var names []string
	req, e := http.NewRequestWithContext(ctx, "GET", u, nil)
	if e != nil {
		return nil, "", e
	}
	req.Header.Set("If-None-Match", etag)
	if c.auth {
		req.SetBasicAuth(c.user, c.pass)
	}
	res, e := c.client.Do(req)
	if e != nil {
		return nil, "", e
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotModified {
		return nil, etag, nil
	}
	if res.StatusCode != http.StatusOK {
		re := &Error{Code: res.StatusCode, Message: res.Status}
		json.NewDecoder(res.Body).Decode(re)
		return nil, "", re
	}
	if e = json.NewDecoder(res.Body).Decode(&names); e != nil {
		return nil, "", e
	}
	return names, res.Header.Get("Etag"), nil
}

// Status retrieves a snapshot of the named node.
func (c *Client) Status(ctx context.Context, name string) (*rosvisor.NodeStatus, error) {
	status := &rosvisor.NodeStatus{}
	if _, e := c.do(ctx, "GET", c.url(name), nil, status); e != nil {
		return nil, e
	}
	return status, nil
}

// Log retrieves the output records newer than since, and the log ID to
// pass on the next call.
func (c *Client) Log(ctx context.Context, name string, since int64) ([]rosvisor.LogRecord, int64, error) {
	u := c.url(name) + "/log"
	if since != 0 {
		u += "?since=" + strconv.FormatInt(since, 10)
	}
	var recs []rosvisor.LogRecord
	etag, e := c.do(ctx, "GET", u, nil, &recs)
	if e != nil {
		return nil, since, e
	}
	id, _ := strconv.ParseInt(etag, 10, 64)
	return recs, id, nil
}

// Terminate stops the named node; the call returns once the process
// has been reaped on the server.
func (c *Client) Terminate(ctx context.Context, name string) error {
	_, e := c.do(ctx, "POST", c.url(name)+"/terminate", nil, nil)
	return e
}

// Remove deletes a terminal node record, freeing its name.
func (c *Client) Remove(ctx context.Context, name string) error {
	_, e := c.do(ctx, "DELETE", c.url(name), nil, nil)
	return e
}
