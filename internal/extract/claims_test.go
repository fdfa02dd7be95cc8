package extract

import (
	"strings"
	"testing"

	"github.com/ppiankov/diligentia/internal/model"
)

func TestClaimExtractor_BasicExtraction(t *testing.T) {
	extractor := NewClaimExtractor()

	html := `
	<html>
	<body>
		<p>Acme Robotics was founded in 2019 in Austin, Texas.</p>
		<p>The company raised $12M in a Series A led by Example Ventures.</p>
		<p>This is just a regular sentence about nothing.</p>
	</body>
	</html>
	`

	claims, err := extractor.Extract(html, "entity_profile")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(claims) != 2 {
		t.Fatalf("Expected 2 claims, got %d: %+v", len(claims), claims)
	}

	if claims[0].Type != model.ClaimTypeOrigin || claims[0].Heuristic != "keyword:founded" {
		t.Errorf("Expected origin claim from 'founded', got %+v", claims[0])
	}
	if claims[1].Type != model.ClaimTypeFunding {
		t.Errorf("Expected funding claim, got %s", claims[1].Type)
	}
	for _, c := range claims {
		if c.Verdict != model.VerdictPending {
			t.Errorf("Expected pending verdict, got %s", c.Verdict)
		}
		if c.ExtractedFrom != "entity_profile" {
			t.Errorf("Expected extracted_from entity_profile, got %s", c.ExtractedFrom)
		}
	}
}

func TestClaimExtractor_SkipScripts(t *testing.T) {
	extractor := NewClaimExtractor()

	html := `
	<html>
	<head>
		<script>var text = "The system was founded in 1995.";</script>
		<style>/* raised from CSS */</style>
	</head>
	<body><p>The product was first introduced in 2020.</p></body>
	</html>
	`

	claims, err := extractor.Extract(html, "website")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(claims) != 1 || !strings.Contains(claims[0].Text, "2020") {
		t.Errorf("Expected only the body claim, got %+v", claims)
	}
}

func TestClaimExtractor_WordBoundaries(t *testing.T) {
	extractor := NewClaimExtractor()

	// "arr" inside "arrived" and "sec" inside "second" must not match
	claims := extractor.ExtractText("The second shipment arrived on time yesterday.", "x")
	if len(claims) != 0 {
		t.Errorf("Expected no claims from partial word matches, got %+v", claims)
	}

	claims = extractor.ExtractText("The startup reports ARR of $4M this year.", "x")
	if len(claims) != 1 || claims[0].Type != model.ClaimTypeMetric {
		t.Errorf("Expected metric claim from ARR, got %+v", claims)
	}
}

func TestClaimExtractor_Deduplication(t *testing.T) {
	extractor := NewClaimExtractor()

	claims := extractor.ExtractText("Acme was founded in 1990. Acme was founded in 1990. ACME WAS FOUNDED IN 1990.", "x")
	if len(claims) != 1 {
		t.Errorf("Expected 1 unique claim after deduplication, got %d", len(claims))
	}
}

func TestClaimExtractor_ClassifyClaim(t *testing.T) {
	extractor := NewClaimExtractor()

	tests := []struct {
		text string
		want model.ClaimType
	}{
		{"We are licensed by the FCA", model.ClaimTypeRegulatory},
		{"Our therapy is clinically proven", model.ClaimTypeScientific},
		{"We partnered with a top-10 bank", model.ClaimTypeAttribution},
		{"We make great coffee", model.ClaimTypeGeneral},
	}
	for _, tt := range tests {
		if got := extractor.ClassifyClaim(tt.text); got != tt.want {
			t.Errorf("ClassifyClaim(%q) = %s, want %s", tt.text, got, tt.want)
		}
	}
}

func TestClaimExtractor_EmptyHTML(t *testing.T) {
	claims, err := NewClaimExtractor().Extract(`<html><body></body></html>`, "x")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(claims) != 0 {
		t.Errorf("Expected no claims, got %d", len(claims))
	}
}
