package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type EchoError struct {
	Message string `json:"message"`
}

var client = newClient()

func newClient() *http.Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxConnsPerHost = 100
	t.MaxIdleConnsPerHost = 100
	return &http.Client{
		Timeout:   15 * time.Second,
		Transport: t,
	}
}

// DoRequest sends payload as JSON and decodes a 2xx response into v. The
// status code is returned whenever a response was received.
func DoRequest(ctx context.Context, method, url string, headers map[string]string, payload []byte, v interface{}) (statusCode int, err error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Add(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		d, err := io.ReadAll(res.Body)
		if err != nil {
			return res.StatusCode, fmt.Errorf("read body: %w", err)
		}

		var echoerr EchoError
		if jserr := json.Unmarshal(d, &echoerr); jserr == nil && echoerr.Message != "" {
			return res.StatusCode, fmt.Errorf("%s", echoerr.Message)
		}

		return res.StatusCode, fmt.Errorf("http status: %d: %s", res.StatusCode, d)
	}
	if v == nil {
		return res.StatusCode, nil
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return res.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return res.StatusCode, nil
}
