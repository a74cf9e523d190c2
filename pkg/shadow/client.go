package shadow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okabe-lab/assetdesk-backend/pkg/config"
	"github.com/okabe-lab/assetdesk-backend/pkg/logger"
)

// The IoT data plane signs with the iotdevicegateway service name.
const signingService = "iotdevicegateway"

// Reading is the reported slice of a device shadow that locations expose.
type Reading struct {
	Temperature          float64 `json:"temperature"`
	Humidity             float64 `json:"humidity"`
	ACIsEnable           bool    `json:"ac_is_enable"`
	DehumidifierIsEnable bool    `json:"dehumidifier_is_enable"`
}

// DefaultReading is the zero-value reading used when a shadow cannot be read.
func DefaultReading() Reading {
	return Reading{}
}

// Client talks to the AWS IoT device shadow REST API.
type Client struct {
	httpClient *http.Client
	endpoint   string
	signer     *signer
}

// NewClient builds a shadow client against the account's IoT data endpoint.
func NewClient(cfg config.ShadowConfig, logg *logger.Logger) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("iot shadow endpoint is required")
	}
	endpoint = strings.TrimSuffix(endpoint, "/")
	if !strings.HasPrefix(endpoint, "https://") && !strings.HasPrefix(endpoint, "http://") {
		endpoint = "https://" + endpoint
	}

	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   endpoint,
		signer: &signer{
			accessKeyID:     cfg.AccessKeyID,
			secretAccessKey: cfg.SecretAccessKey,
			sessionToken:    cfg.SessionToken,
			region:          cfg.Region,
			service:         signingService,
		},
	}

	if logg != nil {
		logg.Info(context.Background(), "iot shadow client initialized")
	}
	return c, nil
}

// GetReported fetches the reported state of a named shadow. Fields missing
// from the shadow document stay at their zero values.
func (c *Client) GetReported(ctx context.Context, thingName, shadowName string) (Reading, error) {
	if c == nil {
		return Reading{}, errors.New("shadow client not initialized")
	}
	if thingName == "" {
		return Reading{}, errors.New("thing name is required")
	}

	req, err := c.newRequest(ctx, http.MethodGet, thingName, shadowName, nil)
	if err != nil {
		return Reading{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Reading{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return Reading{}, fmt.Errorf("get shadow %s/%s: %s: %s", thingName, shadowName, resp.Status, strings.TrimSpace(string(b)))
	}

	var doc struct {
		State struct {
			Reported Reading `json:"reported"`
		} `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return Reading{}, fmt.Errorf("decoding shadow document: %w", err)
	}
	return doc.State.Reported, nil
}

// UpdateDesired writes the desired state of a named shadow.
func (c *Client) UpdateDesired(ctx context.Context, thingName, shadowName string, desired map[string]any) error {
	if c == nil {
		return errors.New("shadow client not initialized")
	}
	if thingName == "" {
		return errors.New("thing name is required")
	}
	if len(desired) == 0 {
		return errors.New("desired state is required")
	}

	payload, err := json.Marshal(map[string]any{
		"state": map[string]any{"desired": desired},
	})
	if err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPost, thingName, shadowName, payload)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("update shadow %s/%s: %s: %s", thingName, shadowName, resp.Status, strings.TrimSpace(string(b)))
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, thingName, shadowName string, body []byte) (*http.Request, error) {
	u := fmt.Sprintf("%s/things/%s/shadow", c.endpoint, url.PathEscape(thingName))
	if shadowName != "" {
		u += "?name=" + url.QueryEscape(shadowName)
	}

	var reader io.Reader
	payloadHash := hexSHA256(nil)
	if body != nil {
		reader = bytes.NewReader(body)
		payloadHash = hexSHA256(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.signer.sign(req, payloadHash, time.Now())
	return req, nil
}
