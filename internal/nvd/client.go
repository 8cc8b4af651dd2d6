package nvd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/frahmantamala/vuln-management/internal"
)

// Severity is the CVSS assessment attached to a CVE, when the catalog
// publishes one.
type Severity struct {
	Severity string
	Score    float64
}

// CVEInfo is the subset of catalog data the vulnerability lifecycle
// consumes.
type CVEInfo struct {
	Description string
	References  []string
	Severity    *Severity
}

// Client talks to the NVD CVE API 2.0.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// metricVersions in priority order; the first metric present wins.
var metricVersions = []string{"cvssMetricV31", "cvssMetricV30", "cvssMetricV2"}

type apiResponse struct {
	TotalResults    int `json:"totalResults"`
	Vulnerabilities []struct {
		CVE cveRecord `json:"cve"`
	} `json:"vulnerabilities"`
}

type cveRecord struct {
	Descriptions []struct {
		Lang  string `json:"lang"`
		Value string `json:"value"`
	} `json:"descriptions"`
	References []struct {
		URL string `json:"url"`
	} `json:"references"`
	Metrics map[string][]cvssMetric `json:"metrics"`
}

type cvssMetric struct {
	CvssData struct {
		BaseSeverity string  `json:"baseSeverity"`
		BaseScore    float64 `json:"baseScore"`
	} `json:"cvssData"`
}

// FetchCVE looks up a CVE id in the catalog. An unknown CVE and a
// non-success provider status are reported as distinct failures; every
// other failure is wrapped as a generic external lookup error.
func (c *Client) FetchCVE(ctx context.Context, cveID string) (*CVEInfo, error) {
	endpoint := fmt.Sprintf("%s?cveId=%s", c.baseURL, url.QueryEscape(strings.ToUpper(cveID)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, internal.ErrExternalLookup.WithCause(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("nvd request failed", "cve", cveID, "error", err)
		return nil, internal.ErrExternalLookup.WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("nvd returned non-success status", "cve", cveID, "status", resp.StatusCode)
		return nil, internal.ErrProviderBadStatus
	}

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, internal.ErrExternalLookup.WithCause(err)
	}

	if result.TotalResults == 0 || len(result.Vulnerabilities) == 0 {
		return nil, internal.ErrCVEDoesNotExist
	}

	record := result.Vulnerabilities[0].CVE

	info := &CVEInfo{
		Severity: severityFromMetrics(record.Metrics),
	}
	if len(record.Descriptions) > 0 {
		info.Description = record.Descriptions[0].Value
	}
	for _, ref := range record.References {
		info.References = append(info.References, ref.URL)
	}

	return info, nil
}

// severityFromMetrics picks the highest-priority CVSS metric available.
// CVSS 2.0 has no required baseSeverity, so it is bucketed by score.
func severityFromMetrics(metrics map[string][]cvssMetric) *Severity {
	for _, version := range metricVersions {
		entries, ok := metrics[version]
		if !ok || len(entries) == 0 {
			continue
		}

		data := entries[0].CvssData
		severity := strings.ToLower(data.BaseSeverity)
		if severity == "" {
			switch {
			case data.BaseScore < 4.0:
				severity = "low"
			case data.BaseScore < 7.0:
				severity = "medium"
			default:
				severity = "high"
			}
		}

		return &Severity{Severity: severity, Score: data.BaseScore}
	}

	return nil
}
