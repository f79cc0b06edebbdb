// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

// Package signer lists the validator keys held by a web3signer instance
// through its keymanager endpoint. The client exposes no write
// methods: the signer is the source of truth and is never modified.
package signer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/toeirei/keysync/internal/apiclient"
	"github.com/toeirei/keysync/internal/model"
)

// KeystoresPath is the keymanager listing endpoint of the signer.
const KeystoresPath = "/eth/v1/keystores"

// Keystore is one entry of the listing response. Only ValidatingPubkey is
// used for reconciliation.
type Keystore struct {
	ValidatingPubkey string `json:"validating_pubkey"`
	DerivationPath   string `json:"derivation_path"`
	Readonly         bool   `json:"readonly"`
}

// Data is a pointer so that a body without a "data" list is told apart from
// an empty one.
type listResponse struct {
	Data *[]Keystore `json:"data"`
}

// Client talks to a remote signer.
type Client struct {
	api *apiclient.Client
}

// New returns a Client for the signer at baseURL, e.g. https://web3signer.example.com.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{api: apiclient.New(baseURL, timeout)}
}

// BaseURL is the signer URL attached to keys imported into the client.
func (c *Client) BaseURL() string {
	return c.api.BaseURL
}

// Keystores returns the raw listing. A body without a "data" list or with an
// entry lacking validating_pubkey is rejected with apiclient.ErrDecode.
func (c *Client) Keystores(ctx context.Context) ([]Keystore, error) {
	var resp listResponse
	if err := c.api.Do(ctx, http.MethodGet, KeystoresPath, nil, &resp); err != nil {
		return nil, err
	}
	url := c.api.URL(KeystoresPath)
	if resp.Data == nil {
		return nil, fmt.Errorf("%w of GET %s: missing data list", apiclient.ErrDecode, url)
	}
	for i, s := range *resp.Data {
		if s.ValidatingPubkey == "" {
			return nil, fmt.Errorf("%w of GET %s: entry %d has no validating_pubkey", apiclient.ErrDecode, url, i)
		}
	}
	return *resp.Data, nil
}

// ListKeys returns the validating pubkeys in listing order.
func (c *Client) ListKeys(ctx context.Context) (model.KeySet, error) {
	stores, err := c.Keystores(ctx)
	if err != nil {
		return nil, err
	}
	keys := make(model.KeySet, 0, len(stores))
	for _, s := range stores {
		keys = append(keys, s.ValidatingPubkey)
	}
	return keys, nil
}
