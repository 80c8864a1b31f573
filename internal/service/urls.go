package service

import (
	"strings"

	"github.com/punchamoorthee/paygate/internal/config"
	"github.com/punchamoorthee/paygate/internal/domain"
)

const apiVersion = "v1"

var baseURLs = map[string]map[domain.API]string{
	config.EnvProduction: {
		domain.APIPayment: "https://api.unzer.com",
		domain.APIPaypage: "https://paypage.unzer.com",
		domain.APIToken:   "https://token.unzer.com",
	},
	config.EnvSandbox: {
		domain.APIPayment: "https://sbx-api.unzer.com",
		domain.APIPaypage: "https://sbx-paypage.unzer.com",
		domain.APIToken:   "https://sbx-token.unzer.com",
	},
	config.EnvIntegration: {
		domain.APIPayment: "https://stg-api.unzer.com",
		domain.APIPaypage: "https://stg-paypage.unzer.com",
		domain.APIToken:   "https://stg-token.unzer.com",
	},
}

// resolver maps an API surface and a resource path to an absolute URL.
type resolver struct {
	env     string
	baseURL string
}

func (r resolver) url(api domain.API, path string) string {
	base := r.baseURL
	if base == "" {
		base = baseURLs[r.env][api]
		if base == "" {
			base = baseURLs[config.EnvSandbox][api]
		}
	}
	return base + "/" + apiVersion + "/" + strings.TrimLeft(path, "/")
}

func (r resolver) tokenURL() string {
	return r.url(domain.APIToken, "auth/token")
}
