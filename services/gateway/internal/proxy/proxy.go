package proxy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Forward relays an incoming request to base+suffix and writes the upstream
// response back. The suffix should begin with a slash.
func Forward(w http.ResponseWriter, r *http.Request, client *http.Client, base, suffix string) {
	target, err := buildTargetURL(base, suffix, r.URL.RawQuery)
	if err != nil {
		http.Error(w, "invalid upstream url", http.StatusBadGateway)
		return
	}

	body, err := readRequestBody(r)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, body)
	if err != nil {
		http.Error(w, "failed to create upstream request", http.StatusBadGateway)
		return
	}
	copyRequestHeaders(req.Header, r.Header)

	resp, err := client.Do(req)
	if err != nil {
		http.Error(w, "upstream request failed", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	copyResponseHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func buildTargetURL(base, suffix, rawQuery string) (string, error) {
	baseURL, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", err
	}
	if suffix != "" && !strings.HasPrefix(suffix, "/") {
		suffix = "/" + suffix
	}
	baseURL.Path += suffix
	baseURL.RawQuery = rawQuery
	return baseURL.String(), nil
}

func readRequestBody(r *http.Request) (io.Reader, error) {
	if r.Body == nil {
		return http.NoBody, nil
	}
	defer r.Body.Close()

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return http.NoBody, nil
	}
	return bytes.NewReader(raw), nil
}

func copyRequestHeaders(dst, src http.Header) {
	for key, values := range src {
		lower := strings.ToLower(key)
		if lower == "content-type" || lower == "accept" || strings.HasPrefix(lower, "x-") {
			for _, value := range values {
				dst.Add(key, value)
			}
		}
	}
}

func copyResponseHeaders(dst, src http.Header) {
	for key, values := range src {
		lower := strings.ToLower(key)
		if lower == "content-type" || lower == "content-length" || lower == "content-disposition" || strings.HasPrefix(lower, "x-") {
			dst[key] = append([]string(nil), values...)
		}
	}
}

// FetchList GETs a {"data": [...]} envelope from url.
func FetchList(client *http.Client, req *http.Request) ([]map[string]any, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("upstream %s responded with %d: %s", req.URL, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var envelope struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("upstream %s: decode: %w", req.URL, err)
	}
	if envelope.Data == nil {
		return []map[string]any{}, nil
	}
	return envelope.Data, nil
}
