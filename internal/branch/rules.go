package branch

import (
	"regexp"

	"github.com/ppiankov/diligentia/internal/extract"
)

// Shared extraction patterns. Values are the last capture group.
var (
	foundedPattern      = regexp.MustCompile(`(?i)\b(?:founded|established|incorporated|started)\b\D{0,30}?\b((?:18|19|20)\d{2})\b`)
	headquartersPattern = regexp.MustCompile(`(?i)\b(?:headquartered|based|hq)\s+(?:in|at|out of)\s+([A-Z][A-Za-z .'-]{2,40}?)(?:[,.;]|\s+(?:and|with|since|where)\b|$)`)
	fundingPattern      = regexp.MustCompile(`(?i)\braised\s+(?:a total of\s+|over\s+|more than\s+|about\s+)?(\$\s?[0-9][0-9.,]*\s*(?:k|m|mm|million|b|bn|billion)?)`)
	roundPattern        = regexp.MustCompile(`(?i)\b(pre-seed|seed|series [a-h]|growth|pre-ipo)\b(?:\s+(?:round|funding))?`)
	investorPattern     = regexp.MustCompile(`(?i)\b(?:led by|backed by|investors include)\s+([A-Z][A-Za-z0-9&.' -]{2,50}?)(?:[,.;]|\s+(?:and|with)\b|$)`)
	valuationPattern    = regexp.MustCompile(`(?i)\bvaluation of\s+(\$\s?[0-9][0-9.,]*\s*(?:k|m|mm|million|b|bn|billion)?)`)
	employeesPattern    = regexp.MustCompile(`(?i)\b([0-9][0-9,]*)\+?\s+(?:employees|staff|people|team members)\b`)
	ceoPattern          = regexp.MustCompile(`(?:\bCEO\b|(?i:\bchief executive(?: officer)?\b))[ ,]*(?i:is\s+)?([A-Z][a-z]+(?:\s[A-Z][a-z'-]+){1,2})`)
	founderPattern      = regexp.MustCompile(`(?i:co-?founded|founded)\s+by\s+([A-Z][a-z]+(?:\s[A-Z][a-z'-]+){1,2})`)
	jurisdictionPattern = regexp.MustCompile(`(?i)\b(?:incorporated|registered)\s+in\s+(?:the\s+)?([A-Z][A-Za-z .'-]{2,30}?)(?:[,.;]|\s+(?:as|under|with|since|in)\b|$)`)
	licensePattern      = regexp.MustCompile(`(?i)\b(?:licensed|authori[sz]ed|regulated|registered)\s+(?:by|with)\s+(?:the\s+)?([A-Z][A-Za-z&. ()-]{1,50}?)(?:[,.;]|\s+(?:as|under|since|to|for)\b|$)`)
	patentPattern       = regexp.MustCompile(`(?i)\b(?:patent|patents|patent no\.?|us\s?patent)\s*(?:no\.?\s*)?((?:US)?\s?[0-9][0-9,]{5,}(?:\s?[AB][12])?)`)
	patentCountPattern  = regexp.MustCompile(`(?i)\b([0-9]{1,4})\s+(?:granted\s+|issued\s+|pending\s+)?patents?\b`)
	customersPattern    = regexp.MustCompile(`(?i)\b([0-9][0-9,.]*\s*(?:k|m|million|thousand)?)\+?\s+(?:customers|clients|users|businesses)\b`)
	revenuePattern      = regexp.MustCompile(`(?i)\b(?:revenue|arr|annual recurring revenue|sales)\s+(?:of\s+|reached\s+|hit\s+|at\s+)?(\$\s?[0-9][0-9.,]*\s*(?:k|m|mm|million|b|bn|billion)?)`)
	competitorPattern   = regexp.MustCompile(`(?i)\b(?:competitors?|competes with|rivals?|alternatives? to)\s+(?:include\s+|such as\s+|like\s+)?([A-Z][A-Za-z0-9.&' -]{1,40}?)(?:[,.;]|\s+(?:and|or)\b|$)`)
)

// Adverse keywords, grouped by severity
var (
	adverseCriticalKeywords = []string{"indicted", "convicted", "fraud charges", "charged with fraud", "ponzi", "money laundering", "pleaded guilty"}
	adverseSanctionKeywords = []string{"sanctioned", "sanctions list", "ofac", "sdn list", "enforcement action", "cease and desist", "consent order"}
	adverseMajorKeywords    = []string{"lawsuit", "sued", "class action", "fraud", "scam", "investigation", "inquiry", "bankruptcy", "insolvency", "data breach"}
	adverseMinorKeywords    = []string{"layoffs", "controversy", "complaints", "dispute", "fined", "warning letter"}
)

func keywordRule(name string, weight float64, keywords ...string) extract.Rule {
	return extract.Rule{Name: name, Keywords: keywords, Weight: weight}
}

func patternRule(name string, weight float64, pattern *regexp.Regexp, keywords ...string) extract.Rule {
	return extract.Rule{Name: name, Keywords: keywords, Pattern: pattern, Weight: weight}
}

func amountRule(name string, weight float64, pattern *regexp.Regexp, keywords ...string) extract.Rule {
	return extract.Rule{Name: name, Keywords: keywords, Pattern: pattern, Numeric: true, Weight: weight}
}
