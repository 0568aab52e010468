// Package client is a typed HTTP client for the mindmap API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mindmap-backend/domain/core/entities"
	pkgerrors "mindmap-backend/pkg/errors"
)

// Client talks to a running mindmap server
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the server at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type mindmapEnvelope struct {
	Mindmap  *entities.Mindmap       `json:"mindmap"`
	NewNode  *entities.MindmapNode   `json:"newNode,omitempty"`
	NewNodes []*entities.MindmapNode `json:"newNodes,omitempty"`
}

// ListMindmaps returns the summaries of all mindmaps
func (c *Client) ListMindmaps(ctx context.Context) ([]entities.MindmapSummary, error) {
	var out struct {
		Mindmaps []entities.MindmapSummary `json:"mindmaps"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/mindmaps", nil, &out); err != nil {
		return nil, err
	}
	return out.Mindmaps, nil
}

// GetMindmap fetches a mindmap, creating it on the server if needed
func (c *Client) GetMindmap(ctx context.Context, id string) (*entities.Mindmap, error) {
	var out mindmapEnvelope
	if err := c.do(ctx, http.MethodGet, mindmapPath(id, ""), nil, &out); err != nil {
		return nil, err
	}
	return out.Mindmap, nil
}

// SaveMindmap replaces the whole mindmap
func (c *Client) SaveMindmap(ctx context.Context, id string, m *entities.Mindmap) (*entities.Mindmap, error) {
	var out mindmapEnvelope
	if err := c.do(ctx, http.MethodPost, mindmapPath(id, ""), map[string]interface{}{"mindmap": m}, &out); err != nil {
		return nil, err
	}
	return out.Mindmap, nil
}

// AddNode adds one child under parentID
func (c *Client) AddNode(ctx context.Context, id, parentID, text string) (*entities.Mindmap, *entities.MindmapNode, error) {
	var out mindmapEnvelope
	body := map[string]interface{}{"parent_id": parentID, "text": text}
	if err := c.do(ctx, http.MethodPost, mindmapPath(id, "add-node"), body, &out); err != nil {
		return nil, nil, err
	}
	return out.Mindmap, out.NewNode, nil
}

// AddBranch adds several children under parentID, in order
func (c *Client) AddBranch(ctx context.Context, id, parentID string, texts []string) (*entities.Mindmap, []*entities.MindmapNode, error) {
	if texts == nil {
		texts = []string{}
	}
	var out mindmapEnvelope
	body := map[string]interface{}{"parent_id": parentID, "texts": texts}
	if err := c.do(ctx, http.MethodPost, mindmapPath(id, "add-branch"), body, &out); err != nil {
		return nil, nil, err
	}
	return out.Mindmap, out.NewNodes, nil
}

// DeleteNode removes a node and its subtree
func (c *Client) DeleteNode(ctx context.Context, id, nodeID string) (*entities.Mindmap, error) {
	return c.mutate(ctx, id, "delete-node", map[string]interface{}{"node_id": nodeID})
}

// UpdateNodeText replaces the text of a node
func (c *Client) UpdateNodeText(ctx context.Context, id, nodeID, text string) (*entities.Mindmap, error) {
	return c.mutate(ctx, id, "update-node", map[string]interface{}{"node_id": nodeID, "text": text})
}

// ToggleCollapse flips the collapsed flag of a node
func (c *Client) ToggleCollapse(ctx context.Context, id, nodeID string) (*entities.Mindmap, error) {
	return c.mutate(ctx, id, "toggle-collapse", map[string]interface{}{"node_id": nodeID})
}

// Reset replaces the mindmap with the starter template
func (c *Client) Reset(ctx context.Context, id string) (*entities.Mindmap, error) {
	return c.mutate(ctx, id, "reset", nil)
}

func (c *Client) mutate(ctx context.Context, id, action string, body interface{}) (*entities.Mindmap, error) {
	var out mindmapEnvelope
	if err := c.do(ctx, http.MethodPost, mindmapPath(id, action), body, &out); err != nil {
		return nil, err
	}
	return out.Mindmap, nil
}

func mindmapPath(id, action string) string {
	p := "/api/mindmap/" + url.PathEscape(id)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.NewNetworkError(fmt.Sprintf("failed to reach %s", c.baseURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError rebuilds the server's AppError from its JSON error body
func decodeError(resp *http.Response) error {
	var body pkgerrors.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Error == "" {
		return pkgerrors.NewExternalError(http.StatusText(resp.StatusCode), resp.StatusCode)
	}
	errType := pkgerrors.ErrorType(body.Type)
	if errType == "" {
		errType = pkgerrors.ErrorTypeExternal
	}
	return &pkgerrors.AppError{
		Type:       errType,
		Message:    body.Error,
		Code:       body.Code,
		Details:    body.Details,
		HTTPStatus: resp.StatusCode,
	}
}
