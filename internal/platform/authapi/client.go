package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yungbote/markupsync/internal/platform/logger"
)

// Platform is the storefront software an eshop runs on.
type Platform int

const (
	PlatformShopify     Platform = 0
	PlatformWoocommerce Platform = 1
	PlatformPrestashop  Platform = 2
	PlatformMagento     Platform = 3
	PlatformOpencart3   Platform = 4
)

var platformNames = map[Platform]string{
	PlatformShopify:     "Shopify",
	PlatformWoocommerce: "Woocommerce",
	PlatformPrestashop:  "Prestashop",
	PlatformMagento:     "Magento",
	PlatformOpencart3:   "Opencart3",
}

func (p Platform) String() string {
	if name, ok := platformNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Platform(%d)", int(p))
}

// Eshop is the subset of the eshop-api-keys payload the ingest needs.
type Eshop struct {
	ID         int64    `json:"id"`
	PlatformID Platform `json:"shop_platform_id"`
}

var ErrEshopNotFound = errors.New("account has no eshop")

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *logger.Logger
}

func NewClient(log *logger.Logger, cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("missing auth api url")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: base,
		token:   cfg.Token,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: log.With("client", "AuthAPI"),
	}, nil
}

// GetEshop returns the first eshop registered for the account.
func (c *Client) GetEshop(ctx context.Context, accountID uuid.UUID) (*Eshop, error) {
	url := fmt.Sprintf("%s/v1/accounts/%s/eshop-api-keys", c.baseURL, accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build eshop request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eshop lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("eshop lookup failed", "account_id", accountID, "status", resp.StatusCode)
		return nil, fmt.Errorf("eshop lookup: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var eshops []Eshop
	if err := json.NewDecoder(resp.Body).Decode(&eshops); err != nil {
		return nil, fmt.Errorf("decode eshop response: %w", err)
	}
	if len(eshops) == 0 {
		return nil, ErrEshopNotFound
	}
	return &eshops[0], nil
}
