// cmd/client/client.go

package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// apiResponse mirrors the server's response envelope.
type apiResponse struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	Data       jsoniter.RawMessage `json:"data"`
	Pagination *struct {
		Page       int `json:"page"`
		Size       int `json:"size"`
		Total      int `json:"total"`
		TotalPages int `json:"total_pages"`
	} `json:"pagination"`
	StatusCode int `json:"-"`
}

// apiClient talks to the HTTP API.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string, httpClient *http.Client) *apiClient {
	return &apiClient{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// do sends a request and decodes the envelope. Non-2xx answers are
// returned as an error carrying the server's message.
func (a *apiClient) do(method, path string, body any) (*apiResponse, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("could not encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, a.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("could not build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response: %w", err)
	}

	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("server answered %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	out.StatusCode = resp.StatusCode
	if resp.StatusCode >= 300 {
		return &out, fmt.Errorf("server answered %d: %s", resp.StatusCode, out.Message)
	}
	return &out, nil
}

func collectionPath(collection string, parts ...string) string {
	path := "/collections/" + url.PathEscape(collection)
	for _, p := range parts {
		path += "/" + url.PathEscape(p)
	}
	return path
}

// listPath builds the list URL, normalising a user supplied query string
// such as "page=2&price[gt]=10".
func listPath(collection, rawQuery string) (string, error) {
	path := collectionPath(collection, "items")
	rawQuery = strings.TrimPrefix(strings.TrimSpace(rawQuery), "?")
	if rawQuery == "" {
		return path, nil
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", fmt.Errorf("invalid query string: %w", err)
	}
	return path + "?" + values.Encode(), nil
}
