package fetch

import (
	"net/http"
	"net/url"
	"strings"
)

// NewProxyFunc builds a transport proxy function from explicit settings,
// falling back to the environment when none are given. Hosts listed in
// noProxy (comma separated, suffix match) bypass the proxy.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	var bypass []string
	for _, h := range strings.Split(noProxy, ",") {
		if h = strings.TrimSpace(strings.ToLower(h)); h != "" {
			bypass = append(bypass, strings.TrimPrefix(h, "."))
		}
	}

	return func(req *http.Request) (*url.URL, error) {
		host := strings.ToLower(req.URL.Hostname())
		for _, b := range bypass {
			if host == b || strings.HasSuffix(host, "."+b) {
				return nil, nil
			}
		}
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}
