package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"waxcrate/internal/config"
)

type commandContext struct {
	serverFlag *string
	configFlag *string
	ownerFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	client *http.Client
}

func newCommandContext(serverFlag, configFlag, ownerFlag *string) *commandContext {
	return &commandContext{
		serverFlag: serverFlag,
		configFlag: configFlag,
		ownerFlag:  ownerFlag,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) baseURL() string {
	if c.serverFlag != nil && strings.TrimSpace(*c.serverFlag) != "" {
		return strings.TrimRight(strings.TrimSpace(*c.serverFlag), "/")
	}
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		return "http://" + cfg.Paths.APIBind
	}
	return "http://127.0.0.1:7910"
}

func (c *commandContext) owner() string {
	if c.ownerFlag != nil && strings.TrimSpace(*c.ownerFlag) != "" {
		return strings.TrimSpace(*c.ownerFlag)
	}
	if env := strings.TrimSpace(os.Getenv("WAXCRATE_OWNER")); env != "" {
		return env
	}
	return "local"
}

// doRequest sends an owner-scoped request to the daemon API and decodes the
// JSON response into out when out is non-nil.
func (c *commandContext) doRequest(method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequest(method, c.baseURL()+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("X-Owner-ID", c.owner())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return wrapDialError(err, c.baseURL())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error  string `json:"error"`
			Reason string `json:"reason"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = resp.Status
		}
		if apiErr.Reason != "" {
			return fmt.Errorf("daemon rejected request (%s): %s", apiErr.Reason, apiErr.Error)
		}
		return fmt.Errorf("daemon rejected request: %s", apiErr.Error)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *commandContext) getJSON(path string, out any) error {
	return c.doRequest(http.MethodGet, path, nil, "", out)
}

func (c *commandContext) postJSON(path string, payload, out any) error {
	var body io.Reader
	contentType := ""
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(data))
		contentType = "application/json"
	}
	return c.doRequest(http.MethodPost, path, body, contentType, out)
}

func wrapDialError(err error, base string) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon at %s: connection refused; verify waxcrated is running", base)
	}
	return fmt.Errorf("connect to daemon at %s: %w", base, err)
}
