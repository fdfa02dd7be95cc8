package extract

import (
	"testing"
)

func TestLinks_ResolveAndFilter(t *testing.T) {
	html := `<html><body>
		<a href="/about">About <b>us</b></a>
		<a href="https://find-and-update.company-information.service.gov.uk/company/123#filing">Registry</a>
		<a href="https://find-and-update.company-information.service.gov.uk/company/123">Registry again</a>
		<a href="#top">Top</a>
		<a href="mailto:ceo@acme.example">Mail</a>
		<a href="javascript:void(0)">JS</a>
		<a href="ftp://files.acme.example/x">FTP</a>
	</body></html>`

	links, err := Links(html, "https://acme.example/")
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 2 {
		t.Fatalf("Expected 2 links, got %d: %+v", len(links), links)
	}

	if links[0].URL != "https://acme.example/about" || !links[0].IsSameHost {
		t.Errorf("Expected resolved same-host link, got %+v", links[0])
	}
	if links[0].Text != "About us" {
		t.Errorf("Expected nested link text, got %q", links[0].Text)
	}
	if links[1].IsSameHost {
		t.Error("Expected registry link to be external")
	}

	hosts := ExternalHosts(links)
	if len(hosts) != 1 || hosts[0] != "find-and-update.company-information.service.gov.uk" {
		t.Errorf("Unexpected external hosts: %v", hosts)
	}
}

func TestLinks_InvalidBase(t *testing.T) {
	if _, err := Links("<a href='/x'>x</a>", "://bad"); err == nil {
		t.Error("Expected error for invalid base URL")
	}
}
