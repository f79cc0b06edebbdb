// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

// Package keymanager is a client for the consensus client's remote key
// manager API (list, import and delete of remote signer keys).
package keymanager

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/toeirei/keysync/internal/apiclient"
	"github.com/toeirei/keysync/internal/model"
)

// RemoteKeysPath is the remote key manager endpoint of the client.
const RemoteKeysPath = "/eth/v1/remotekeys"

// RemoteKey is one entry of the listing response. Only Pubkey is used for
// reconciliation.
type RemoteKey struct {
	Pubkey   string `json:"pubkey"`
	URL      string `json:"url"`
	Readonly bool   `json:"readonly"`
}

// Data is a pointer so that a body without a "data" list is told apart from
// an empty one.
type listResponse struct {
	Data *[]RemoteKey `json:"data"`
}

type importKey struct {
	Pubkey string `json:"pubkey"`
	URL    string `json:"url"`
}

type importRequest struct {
	RemoteKeys []importKey `json:"remote_keys"`
}

type deleteRequest struct {
	Pubkeys []string `json:"pubkeys"`
}

type status struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type statusResponse struct {
	Data []status `json:"data"`
}

// Client talks to a consensus client's key manager.
type Client struct {
	api *apiclient.Client
}

// New returns a Client for the key manager at baseURL, e.g. http://validator:9000.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{api: apiclient.New(baseURL, timeout)}
}

// RemoteKeys returns the raw listing. A body without a "data" list or with an
// entry lacking pubkey is rejected with apiclient.ErrDecode.
func (c *Client) RemoteKeys(ctx context.Context) ([]RemoteKey, error) {
	var resp listResponse
	if err := c.api.Do(ctx, http.MethodGet, RemoteKeysPath, nil, &resp); err != nil {
		return nil, err
	}
	url := c.api.URL(RemoteKeysPath)
	if resp.Data == nil {
		return nil, fmt.Errorf("%w of GET %s: missing data list", apiclient.ErrDecode, url)
	}
	for i, k := range *resp.Data {
		if k.Pubkey == "" {
			return nil, fmt.Errorf("%w of GET %s: entry %d has no pubkey", apiclient.ErrDecode, url, i)
		}
	}
	return *resp.Data, nil
}

// ListKeys returns the loaded remote pubkeys in listing order.
func (c *Client) ListKeys(ctx context.Context) (model.KeySet, error) {
	remote, err := c.RemoteKeys(ctx)
	if err != nil {
		return nil, err
	}
	keys := make(model.KeySet, 0, len(remote))
	for _, k := range remote {
		keys = append(keys, k.Pubkey)
	}
	return keys, nil
}

// ImportKeys registers keys with the client, each bound to its signer URL.
func (c *Client) ImportKeys(ctx context.Context, keys []model.SignerBinding) ([]model.KeyStatus, error) {
	req := importRequest{RemoteKeys: make([]importKey, 0, len(keys))}
	pubkeys := make([]string, 0, len(keys))
	for _, k := range keys {
		req.RemoteKeys = append(req.RemoteKeys, importKey{Pubkey: k.Pubkey, URL: k.URL})
		pubkeys = append(pubkeys, k.Pubkey)
	}
	var resp statusResponse
	if err := c.api.Do(ctx, http.MethodPost, RemoteKeysPath, req, &resp); err != nil {
		return nil, err
	}
	return align(pubkeys, resp.Data)
}

// DeleteKeys removes keys from the client.
func (c *Client) DeleteKeys(ctx context.Context, keys model.KeySet) ([]model.KeyStatus, error) {
	req := deleteRequest{Pubkeys: append([]string{}, keys...)}
	var resp statusResponse
	if err := c.api.Do(ctx, http.MethodDelete, RemoteKeysPath, req, &resp); err != nil {
		return nil, err
	}
	return align(req.Pubkeys, resp.Data)
}

// align pairs order-aligned response statuses with the submitted keys. A
// short or long response still yields what could be paired, plus an error.
func align(pubkeys []string, data []status) ([]model.KeyStatus, error) {
	n := min(len(pubkeys), len(data))
	out := make([]model.KeyStatus, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.KeyStatus{Pubkey: pubkeys[i], Status: data[i].Status, Message: data[i].Message})
	}
	if len(data) != len(pubkeys) {
		return out, fmt.Errorf("key manager returned %d statuses for %d keys", len(data), len(pubkeys))
	}
	return out, nil
}
