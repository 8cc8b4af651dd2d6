package nvd_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/frahmantamala/vuln-management/internal"
	"github.com/frahmantamala/vuln-management/internal/nvd"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestNVDClient(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "NVD Client Suite")
}

var _ = Describe("Client", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
		client  *nvd.Client
		ctx     context.Context
	)

	BeforeEach(func() {
		handler = nil
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		client = nvd.NewClient(server.URL, 5*time.Second, logger)
		ctx = context.Background()
	})

	AfterEach(func() {
		server.Close()
	})

	respond := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(body))
		}
	}

	Describe("FetchCVE", func() {
		It("should query the catalog with the upper-cased id", func() {
			var gotQuery string
			handler = func(w http.ResponseWriter, r *http.Request) {
				gotQuery = r.URL.Query().Get("cveId")
				respond(`{"totalResults":1,"vulnerabilities":[{"cve":{}}]}`)(w, r)
			}

			_, err := client.FetchCVE(ctx, "cve-2024-1234")
			Expect(err).NotTo(HaveOccurred())
			Expect(gotQuery).To(Equal("CVE-2024-1234"))
		})

		It("should extract description, references, and severity", func() {
			handler = respond(`{
				"totalResults": 1,
				"vulnerabilities": [{"cve": {
					"descriptions": [{"lang": "en", "value": "Buffer overflow"}],
					"references": [{"url": "https://example.com/a"}, {"url": "https://example.com/b"}],
					"metrics": {"cvssMetricV31": [{"cvssData": {"baseSeverity": "CRITICAL", "baseScore": 9.8}}]}
				}}]
			}`)

			info, err := client.FetchCVE(ctx, "cve-2024-1234")
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Description).To(Equal("Buffer overflow"))
			Expect(info.References).To(Equal([]string{"https://example.com/a", "https://example.com/b"}))
			Expect(info.Severity).NotTo(BeNil())
			Expect(info.Severity.Severity).To(Equal("critical"))
			Expect(info.Severity.Score).To(Equal(9.8))
		})

		It("should prefer CVSS v3.1 over older metric versions", func() {
			handler = respond(`{
				"totalResults": 1,
				"vulnerabilities": [{"cve": {
					"metrics": {
						"cvssMetricV2": [{"cvssData": {"baseScore": 10.0}}],
						"cvssMetricV30": [{"cvssData": {"baseSeverity": "MEDIUM", "baseScore": 5.0}}],
						"cvssMetricV31": [{"cvssData": {"baseSeverity": "HIGH", "baseScore": 7.2}}]
					}
				}}]
			}`)

			info, err := client.FetchCVE(ctx, "cve-2024-1234")
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Severity.Severity).To(Equal("high"))
			Expect(info.Severity.Score).To(Equal(7.2))
		})

		DescribeTable("should bucket CVSS v2 scores without a base severity",
			func(score float64, expected string) {
				handler = func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "application/json")
					w.Write([]byte(`{
						"totalResults": 1,
						"vulnerabilities": [{"cve": {
							"metrics": {"cvssMetricV2": [{"cvssData": {"baseScore": ` + formatScore(score) + `}}]}
						}}]
					}`))
				}

				info, err := client.FetchCVE(ctx, "cve-2009-0001")
				Expect(err).NotTo(HaveOccurred())
				Expect(info.Severity.Severity).To(Equal(expected))
				Expect(info.Severity.Score).To(Equal(score))
			},
			Entry("low below 4.0", 3.9, "low"),
			Entry("medium below 7.0", 6.9, "medium"),
			Entry("high at 7.0 and above", 7.0, "high"),
			Entry("zero score is low", 0.0, "low"),
		)

		It("should report no severity when the record carries no metrics", func() {
			handler = respond(`{"totalResults":1,"vulnerabilities":[{"cve":{"descriptions":[{"lang":"en","value":"No metrics"}]}}]}`)

			info, err := client.FetchCVE(ctx, "cve-2024-1234")
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Severity).To(BeNil())
		})

		It("should report an unknown CVE", func() {
			handler = respond(`{"totalResults":0,"vulnerabilities":[]}`)

			_, err := client.FetchCVE(ctx, "cve-2024-9999")
			Expect(err).To(MatchError(internal.ErrCVEDoesNotExist))
		})

		It("should report a non-success provider status", func() {
			handler = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			}

			_, err := client.FetchCVE(ctx, "cve-2024-1234")
			Expect(err).To(MatchError(internal.ErrProviderBadStatus))
		})

		It("should wrap a malformed provider response", func() {
			handler = respond(`not json`)

			_, err := client.FetchCVE(ctx, "cve-2024-1234")
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeExternalLookup))
		})

		It("should wrap a connection failure", func() {
			server.Close()

			_, err := client.FetchCVE(ctx, "cve-2024-1234")
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeExternalLookup))
		})
	})
})

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
