// Package queryservice talks to the site's settings and special-content
// endpoints.
package queryservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"threadview/internal/utils"
)

const (
	loadSiteSettingsURL    = "/-/load-site-settings"
	loadSectionSettingsURL = "/-/load-section-settings"
	saveSettingURL         = "/-/save-setting"
	loadSpecialContentURL  = "/-/load-special-content"
	saveSpecialContentURL  = "/-/save-special-content"
)

// TargetKind says which settings a target addresses.
type TargetKind string

const (
	WholeSite TargetKind = "WholeSite"
	PageTree  TargetKind = "PageTree"
)

// SettingsTarget is either the whole site or the section below one page.
type SettingsTarget struct {
	Kind   TargetKind `json:"type"`
	PageID string     `json:"pageId,omitempty"`
}

// Validate rejects unknown kinds and page-tree targets without a page.
func (t SettingsTarget) Validate() error {
	switch t.Kind {
	case WholeSite:
		return nil
	case PageTree:
		if t.PageID == "" {
			return utils.NewAppError(utils.ErrInvalidSettingsTarget, "PageTree settings target needs a page id", nil)
		}
		return nil
	default:
		return utils.NewInvalidSettingsTargetError(string(t.Kind))
	}
}

// SettingValue is one named setting as the server reports it.
type SettingValue struct {
	Name          string          `json:"name"`
	DefaultValue  json.RawMessage `json:"defaultValue"`
	AssignedValue json.RawMessage `json:"anyAssignedValue,omitempty"`
}

// Effective returns the assigned value, or the default when none is set.
func (v SettingValue) Effective() json.RawMessage {
	if len(v.AssignedValue) > 0 && string(v.AssignedValue) != "null" {
		return v.AssignedValue
	}
	return v.DefaultValue
}

// Settings holds every setting loaded for one target, keyed by name.
type Settings struct {
	Target SettingsTarget          `json:"target"`
	Values map[string]SettingValue `json:"values"`
}

// Setting is a single changed value sent back to the server.
type Setting struct {
	Target   SettingsTarget `json:"-"`
	Name     string         `json:"name"`
	NewValue any            `json:"newValue"`
}

func (s Setting) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     TargetKind `json:"type"`
		PageID   string     `json:"pageId,omitempty"`
		Name     string     `json:"name"`
		NewValue any        `json:"newValue"`
	}{s.Target.Kind, s.Target.PageID, s.Name, s.NewValue})
}

// SpecialContent is an editable text the site shows in a fixed place,
// such as the terms of use or the welcome banner.
type SpecialContent struct {
	RootPageID    string  `json:"rootPageId"`
	ContentID     string  `json:"contentId"`
	DefaultText   string  `json:"defaultText"`
	AnyCustomText *string `json:"anyCustomText,omitempty"`
}

// Text returns the custom text if one is set, else the default.
func (c SpecialContent) Text() string {
	if c.AnyCustomText != nil {
		return *c.AnyCustomText
	}
	return c.DefaultText
}

// Client calls the settings service at BaseURL.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	// Token, if set, is sent as a bearer token.
	Token  string
	logger *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// LoadSettings fetches every setting for the target.
func (c *Client) LoadSettings(ctx context.Context, target SettingsTarget) (*Settings, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	endpoint := loadSiteSettingsURL
	if target.Kind == PageTree {
		endpoint = loadSectionSettingsURL + "?" + url.Values{"rootPageId": {target.PageID}}.Encode()
	}

	var values map[string]SettingValue
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &values); err != nil {
		return nil, err
	}
	for name, v := range values {
		if v.Name == "" {
			v.Name = name
			values[name] = v
		}
	}
	return &Settings{Target: target, Values: values}, nil
}

// SaveSetting stores one setting for its target.
func (c *Client) SaveSetting(ctx context.Context, setting Setting) error {
	if err := setting.Target.Validate(); err != nil {
		return err
	}
	if setting.Name == "" {
		return utils.NewAppError(utils.ErrInvalidInput, "setting name is required", nil)
	}
	return c.do(ctx, http.MethodPost, saveSettingURL, setting, nil)
}

// LoadSpecialContent fetches one special content item below rootPageID.
func (c *Client) LoadSpecialContent(ctx context.Context, rootPageID, contentID string) (*SpecialContent, error) {
	if contentID == "" {
		return nil, utils.NewAppError(utils.ErrInvalidInput, "content id is required", nil)
	}
	query := url.Values{"rootPageId": {rootPageID}, "contentId": {contentID}}
	var content SpecialContent
	if err := c.do(ctx, http.MethodGet, loadSpecialContentURL+"?"+query.Encode(), nil, &content); err != nil {
		return nil, err
	}
	return &content, nil
}

func (c *Client) SaveSpecialContent(ctx context.Context, content SpecialContent) error {
	if content.ContentID == "" {
		return utils.NewAppError(utils.ErrInvalidInput, "content id is required", nil)
	}
	return c.do(ctx, http.MethodPost, saveSpecialContentURL, content, nil)
}

// do sends one request and decodes a JSON response into out, if non-nil.
func (c *Client) do(ctx context.Context, method, endpoint string, data, out any) error {
	var body io.Reader
	if data != nil {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return utils.NewAppError(utils.ErrUpstream, method+" "+endpoint+" failed", err)
	}
	defer resp.Body.Close()
	c.logger.Debug("settings request", "method", method, "endpoint", endpoint, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		code := utils.ErrUpstream
		switch resp.StatusCode {
		case http.StatusNotFound:
			code = utils.ErrNotFound
		case http.StatusUnauthorized, http.StatusForbidden:
			code = utils.ErrUnauthorized
		}
		return utils.NewAppError(code, fmt.Sprintf("%s %s: status %d: %s", method, endpoint, resp.StatusCode, bytes.TrimSpace(msg)), nil)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return utils.NewAppError(utils.ErrUpstream, "decode "+endpoint+" response", err)
	}
	return nil
}
