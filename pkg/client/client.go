// Copyright 2022 The pagetier Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package client talks to a running pagetierd over its control
// socket.
package client

import (
	"encoding/json"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/opentier/pagetier/pkg/api"
)

const dialTimeout = 5 * time.Second

// Client is one control-socket connection.
type Client struct {
	conn net.Conn
	enc  *json.Encoder
	dec  *json.Decoder
}

// Dial connects to the daemon's control socket.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, dialTimeout)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to %q", socketPath)
	}
	return &Client{
		conn: conn,
		enc:  json.NewEncoder(conn),
		dec:  json.NewDecoder(conn),
	}, nil
}

// Do sends one request and waits for its response. A response with a
// non-OK code is returned as an error.
func (c *Client) Do(req api.Request) (api.Response, error) {
	if err := c.enc.Encode(req); err != nil {
		return api.Response{}, errors.Wrap(err, "sending request")
	}
	var resp api.Response
	if err := c.dec.Decode(&resp); err != nil {
		return api.Response{}, errors.Wrap(err, "reading response")
	}
	if resp.Code != api.CodeOK {
		return resp, errors.Errorf("%s failed: %s", req.Command, resp.Message)
	}
	return resp, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
