package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/layer-3/xerial/core"
	"github.com/sirupsen/logrus"
)

const maxErrorBody = 512

// API issues JSON requests against the wallet service
type API struct {
	hosts  core.Hosts
	chain  core.Chain
	client *http.Client
	creds  *CredentialStore
	logger logrus.FieldLogger
}

// NewAPI creates the request helper shared by all components
func NewAPI(cfg core.Config, client *http.Client, creds *CredentialStore, logger logrus.FieldLogger) *API {
	if client == nil {
		client = http.DefaultClient
	}
	return &API{
		hosts:  cfg.Hosts(),
		chain:  cfg.Chain,
		client: client,
		creds:  creds,
		logger: logger.WithField("component", "api"),
	}
}

// WalletURL is the URL of a per-address, per-chain wallet resource
func (a *API) WalletURL(address, resource string) string {
	return fmt.Sprintf("%s/wallet/%s/%s/%s", a.hosts.API, url.PathEscape(address), a.chain, resource)
}

// Do sends one request. Transport failures come back as NetworkError; the
// response is returned whatever its status.
func (a *API) Do(ctx context.Context, method, target string, auth bool, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, core.NewError(core.KindDecode, "failed to encode request body", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, core.NewError(core.KindNetwork, "failed to create request", err)
	}
	req.Header = a.creds.Headers(ctx, auth)

	a.logger.WithFields(logrus.Fields{"method": method, "url": target}).Debug("sending request")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, core.NewError(core.KindNetwork, fmt.Sprintf("%s %s failed", method, target), err)
	}
	return resp, nil
}

// CheckStatus maps a non-2xx response to an error: 401 is NotAuthenticated,
// anything else is NetworkError carrying the status.
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return core.StatusError(core.KindNotAuthenticated, resp.StatusCode, "Not Authenticated")
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return core.StatusError(core.KindNetwork, resp.StatusCode, fmt.Sprintf("unexpected response: %s", bytes.TrimSpace(body)))
}

// DecodeJSON decodes the response body into v
func DecodeJSON(resp *http.Response, v any) error {
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return core.NewError(core.KindDecode, "failed to decode response", err)
	}
	return nil
}

// GetJSON performs an authorized GET and decodes a 2xx body into v
func (a *API) GetJSON(ctx context.Context, target string, v any) error {
	resp, err := a.Do(ctx, http.MethodGet, target, true, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := CheckStatus(resp); err != nil {
		return err
	}
	return DecodeJSON(resp, v)
}
