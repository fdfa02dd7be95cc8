package extract

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Link is an outbound hyperlink found on an evidence page
type Link struct {
	URL        string `json:"url"`
	Host       string `json:"host"`
	IsSameHost bool   `json:"is_same_host"`
	Text       string `json:"text,omitempty"`
}

// Links extracts the http(s) links of an HTML page, resolved against sourceURL
func Links(htmlContent string, sourceURL string) ([]Link, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(sourceURL)
	if err != nil {
		return nil, err
	}

	var links []Link
	var walk func(*html.Node)

	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			href := ""
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					href = strings.TrimSpace(attr.Val)
				}
			}

			if resolved := resolveURL(baseURL, href); resolved != nil {
				host := strings.ToLower(resolved.Host)
				links = append(links, Link{
					URL:        resolved.String(),
					Host:       host,
					IsSameHost: host == strings.ToLower(baseURL.Host),
					Text:       strings.TrimSpace(extractVisibleText(n)),
				})
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)

	return dedupeLinks(links), nil
}

// ExternalHosts returns the distinct hosts of links leaving the page
func ExternalHosts(links []Link) []string {
	seen := make(map[string]bool)
	var hosts []string
	for _, l := range links {
		if l.IsSameHost || l.Host == "" || seen[l.Host] {
			continue
		}
		seen[l.Host] = true
		hosts = append(hosts, l.Host)
	}
	return hosts
}

// resolveURL resolves a relative URL against a base URL
func resolveURL(base *url.URL, href string) *url.URL {
	if href == "" || strings.HasPrefix(href, "#") {
		return nil
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") {
		return nil
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return nil
	}

	resolved := base.ResolveReference(parsed)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return nil
	}
	resolved.Fragment = ""
	return resolved
}

// dedupeLinks removes duplicate links
func dedupeLinks(links []Link) []Link {
	seen := make(map[string]bool)
	var unique []Link

	for _, l := range links {
		if !seen[l.URL] {
			seen[l.URL] = true
			unique = append(unique, l)
		}
	}

	return unique
}
