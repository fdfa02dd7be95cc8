package validate

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ppiankov/diligentia/internal/model"
)

// ReliabilityClassifier grades sources by origin
type ReliabilityClassifier struct {
	config        *model.ReliabilityConfig
	authoritative map[string]bool
	reliable      map[string]bool
	pathPatterns  []*compiledPattern
}

type compiledPattern struct {
	pattern     *regexp.Regexp
	reliability model.Reliability
}

// NewReliabilityClassifier creates a classifier; nil config uses the defaults
func NewReliabilityClassifier(config *model.ReliabilityConfig) *ReliabilityClassifier {
	if config == nil {
		config = &model.DefaultConfig().Reliability
	}

	c := &ReliabilityClassifier{
		config:        config,
		authoritative: make(map[string]bool),
		reliable:      make(map[string]bool),
	}
	for _, domain := range config.AuthoritativeDomains {
		c.authoritative[strings.ToLower(domain)] = true
	}
	for _, domain := range config.ReliableDomains {
		c.reliable[strings.ToLower(domain)] = true
	}
	for _, p := range config.PathPatterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		r, err := model.ParseReliability(p.Reliability)
		if err != nil {
			r = model.ReliabilitySecondary
		}
		c.pathPatterns = append(c.pathPatterns, &compiledPattern{pattern: re, reliability: r})
	}
	return c
}

// Classify grades a URL. Anything unparseable is secondary at best.
func (c *ReliabilityClassifier) Classify(rawURL string) model.Reliability {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return model.ReliabilitySecondary
	}

	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")

	if c.config.DomainMap != nil {
		if name, ok := c.config.DomainMap[host]; ok {
			if r, err := model.ParseReliability(name); err == nil {
				return r
			}
		}
	}

	if matchDomain(host, c.authoritative) {
		return model.ReliabilityAuthoritative
	}
	if matchDomain(host, c.reliable) {
		return model.ReliabilityReliable
	}

	for _, cp := range c.pathPatterns {
		if cp.pattern.MatchString(parsed.Path) {
			return cp.reliability
		}
	}

	// Government and regulator TLDs
	for _, suffix := range []string{".gov", ".gov.uk", ".gouv.fr", ".gc.ca", ".gov.au", ".europa.eu", ".mil"} {
		if strings.HasSuffix(host, suffix) {
			return model.ReliabilityAuthoritative
		}
	}

	return model.ReliabilitySecondary
}

// ClassifySource grades a source by type and URL. Model inferences never
// outrank "inferred", and a source without a URL is inferred.
func (c *ReliabilityClassifier) ClassifySource(sourceType model.SourceType, rawURL string) model.Reliability {
	if sourceType == model.SourceModel || strings.TrimSpace(rawURL) == "" {
		return model.ReliabilityInferred
	}
	r := c.Classify(rawURL)
	if sourceType == model.SourceRegistry && r < model.ReliabilityReliable {
		return model.ReliabilityReliable
	}
	return r
}

// matchDomain reports whether host equals or is a subdomain of a listed domain
func matchDomain(host string, domains map[string]bool) bool {
	if domains[host] {
		return true
	}
	for domain := range domains {
		if strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
