package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/kaytu-io/kaytu-assessor/pkg/internal/httpclient"
	"github.com/labstack/echo/v4"
)

type CatalogServiceClient interface {
	GetControlsByFamily(ctx context.Context, family string) ([]api.Control, error)
}

type catalogClient struct {
	baseURL string
}

// NewCatalogClient reads controls from another service exposing
// /api/v1/controls.
func NewCatalogClient(baseURL string) CatalogServiceClient {
	return &catalogClient{baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *catalogClient) GetControlsByFamily(ctx context.Context, family string) ([]api.Control, error) {
	u := fmt.Sprintf("%s/api/v1/controls?family=%s", s.baseURL, url.QueryEscape(family))

	var response []api.Control
	if statusCode, err := httpclient.DoRequest(ctx, http.MethodGet, u, nil, nil, &response); err != nil {
		if 400 <= statusCode && statusCode < 500 {
			return nil, echo.NewHTTPError(statusCode, err.Error())
		}
		return nil, err
	}
	return response, nil
}
