package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// ============================================================
// HTTP helpers for POST, PATCH, DELETE and function calls
// ============================================================

func (c *Client) doPost(ctx context.Context, table string, data any) ([]byte, error) {
	return c.send(ctx, http.MethodPost, fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table), table, data)
}

func (c *Client) doPatch(ctx context.Context, path string, data any) ([]byte, error) {
	return c.send(ctx, http.MethodPatch, fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path), path, data)
}

func (c *Client) doDelete(ctx context.Context, path string) ([]byte, error) {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path), path, nil)
}

func (c *Client) doFunction(ctx context.Context, name string, data any) ([]byte, error) {
	return c.send(ctx, http.MethodPost, fmt.Sprintf("%s/functions/v1/%s", c.baseURL, name), "functions/"+name, data)
}

// send issues a mutating request asking PostgREST to return the affected rows.
func (c *Client) send(ctx context.Context, method, url, path string, data any) ([]byte, error) {
	var reader *bytes.Reader
	if data != nil {
		jsonBody, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(jsonBody)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	c.authorize(req, "return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, markPermanent(newAPIError(method, path, resp.StatusCode, body))
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)
	return body, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
