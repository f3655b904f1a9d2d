// Package ghsa pulls advisories from the GitHub global security
// advisory database and maps them into the pipeline's input records.
package ghsa

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v68/github"
	"golang.org/x/time/rate"

	"github.com/julianshen/patchloc/internal/advisory"
)

// defaultPerPage is the advisory page size requested from the API.
const defaultPerPage = 100

// Options filters the advisory listing.
type Options struct {
	// CWE filters by CWE identifier, e.g. "CWE-79".
	CWE string
	// Ecosystem filters by package ecosystem, e.g. "npm".
	Ecosystem string
	// Limit caps how many advisories are fetched. Zero means one page.
	Limit int
}

// Client fetches advisories, pacing requests with a rate limiter so a
// large pull stays inside the API's secondary limits.
type Client struct {
	gh      *github.Client
	limiter *rate.Limiter
}

// NewClient builds a Client. token may be empty for anonymous access
// (lower rate limits apply).
func NewClient(token string) *Client {
	gh := github.NewClient(http.DefaultClient)
	if token != "" {
		gh = gh.WithAuthToken(token)
	}
	return &Client{
		gh:      gh,
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
}

// NewClientWithGitHub wraps an existing go-github client, used by tests.
func NewClientWithGitHub(gh *github.Client) *Client {
	return &Client{gh: gh, limiter: rate.NewLimiter(rate.Inf, 1)}
}

// Fetch lists global security advisories matching opts and converts
// them into input records. Advisories without a source-code location
// are dropped, since the pipeline cannot clone them.
func (c *Client) Fetch(ctx context.Context, opts Options) ([]advisory.Record, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultPerPage
	}

	listOpts := &github.ListGlobalSecurityAdvisoriesOptions{
		ListCursorOptions: github.ListCursorOptions{PerPage: defaultPerPage},
	}
	if opts.CWE != "" {
		listOpts.CWEs = []string{opts.CWE}
	}
	if opts.Ecosystem != "" {
		listOpts.Ecosystem = github.Ptr(opts.Ecosystem)
	}

	var records []advisory.Record
	for len(records) < limit {
		if err := c.limiter.Wait(ctx); err != nil {
			return records, err
		}

		advisories, resp, err := c.gh.SecurityAdvisories.ListGlobalSecurityAdvisories(ctx, listOpts)
		if err != nil {
			return records, fmt.Errorf("listing advisories: %w", err)
		}

		for _, adv := range advisories {
			rec := toRecord(adv)
			if rec.RepoURL == "" {
				continue
			}
			records = append(records, rec)
			if len(records) == limit {
				break
			}
		}

		if resp.After == "" {
			break
		}
		listOpts.ListCursorOptions.After = resp.After
	}
	return records, nil
}

func toRecord(adv *github.GlobalSecurityAdvisory) advisory.Record {
	rec := advisory.Record{
		ID:          adv.GetGHSAID(),
		RepoURL:     adv.GetSourceCodeLocation(),
		Description: adv.GetDescription(),
		References:  adv.References,
	}
	if rec.Description == "" {
		rec.Description = adv.GetSummary()
	}

	for _, v := range adv.Vulnerabilities {
		entry := advisory.Vulnerability{
			VulnerableVersionRange: v.GetVulnerableVersionRange(),
			FirstPatchedVersion:    v.GetFirstPatchedVersion(),
		}
		if pkg := v.Package; pkg != nil {
			entry.Package = pkg.GetName()
			if rec.Ecosystem == "" {
				rec.Ecosystem = pkg.GetEcosystem()
			}
		}
		rec.Vulnerabilities = append(rec.Vulnerabilities, entry)
	}
	return rec
}
