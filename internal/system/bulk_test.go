package system_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/frahmantamala/vuln-management/internal/nvd"
	"github.com/frahmantamala/vuln-management/internal/system"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Bulk Operations", func() {
	var (
		mockRepo *MockRepository
		mockCVEs *MockCVEProvider
		service  *system.Service
		ctx      context.Context
	)

	BeforeEach(func() {
		mockRepo = NewMockRepository()
		mockCVEs = NewMockCVEProvider()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = system.NewService(mockRepo, mockCVEs, logger)
		ctx = context.Background()

		mockCVEs.catalog["cve-2024-0001"] = &nvd.CVEInfo{Severity: &nvd.Severity{Severity: "high", Score: 8.1}}
		mockCVEs.catalog["cve-2024-0002"] = &nvd.CVEInfo{Severity: &nvd.Severity{Severity: "low", Score: 2.3}}
		mockCVEs.catalog["cve-2024-0003"] = &nvd.CVEInfo{Severity: &nvd.Severity{Severity: "medium", Score: 5.0}}
	})

	Describe("ReportVulnerabilitiesBulk", func() {
		It("should report every item and keep input order", func() {
			results := service.ReportVulnerabilitiesBulk(ctx, "billing",
				[]string{"cve-2024-0001", "cve-2024-0002", "cve-2024-0003"}, "bob@example.com")

			Expect(results).To(HaveLen(3))
			Expect(results[0].Item).To(Equal("cve-2024-0001"))
			Expect(results[1].Item).To(Equal("cve-2024-0002"))
			Expect(results[2].Item).To(Equal("cve-2024-0003"))
			for _, result := range results {
				Expect(result.Success).To(BeTrue())
				Expect(result.Details).To(BeEmpty())
			}
		})

		It("should collapse duplicate items to a single report", func() {
			results := service.ReportVulnerabilitiesBulk(ctx, "billing",
				[]string{"cve-2024-0001", "cve-2024-0001", "cve-2024-0002"}, "bob@example.com")

			Expect(results).To(HaveLen(2))
			Expect(results[0].Item).To(Equal("cve-2024-0001"))
			Expect(results[1].Item).To(Equal("cve-2024-0002"))
			Expect(mockCVEs.FetchCalls()).To(Equal(2))
		})

		It("should handle a full-size batch of distinct items", func() {
			cves := make([]string, 0, system.MaxBulkItems)
			for i := 0; i < system.MaxBulkItems; i++ {
				cve := fmt.Sprintf("cve-2024-%04d", 100+i)
				mockCVEs.catalog[cve] = &nvd.CVEInfo{Severity: &nvd.Severity{Severity: "high", Score: 8.0}}
				cves = append(cves, cve)
			}

			results := service.ReportVulnerabilitiesBulk(ctx, "billing", cves, "bob@example.com")

			Expect(results).To(HaveLen(system.MaxBulkItems))
			for i, result := range results {
				Expect(result.Item).To(Equal(cves[i]))
				Expect(result.Success).To(BeTrue())
			}
			Expect(mockCVEs.FetchCalls()).To(Equal(system.MaxBulkItems))
		})

		It("should isolate failures to their own item", func() {
			_, err := service.ReportVulnerability(ctx, "billing", "cve-2024-0002", "bob@example.com")
			Expect(err).NotTo(HaveOccurred())

			results := service.ReportVulnerabilitiesBulk(ctx, "billing",
				[]string{"cve-2024-0001", "cve-2024-0002", "cve-2024-9999"}, "bob@example.com")

			Expect(results).To(HaveLen(3))
			Expect(results[0].Success).To(BeTrue())
			Expect(results[1].Success).To(BeFalse())
			Expect(results[1].Details).To(ContainSubstring("already reported"))
			Expect(results[2].Success).To(BeFalse())
			Expect(results[2].Details).To(ContainSubstring("does not exist"))
		})

		It("should return an empty result set for an empty batch", func() {
			results := service.ReportVulnerabilitiesBulk(ctx, "billing", nil, "bob@example.com")
			Expect(results).To(BeEmpty())
		})
	})

	Describe("UpdateVulnerabilitiesStateBulk", func() {
		BeforeEach(func() {
			for _, cve := range []string{"cve-2024-0001", "cve-2024-0002"} {
				_, err := service.ReportVulnerability(ctx, "billing", cve, "bob@example.com")
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("should apply every transition independently", func() {
			results := service.UpdateVulnerabilitiesStateBulk(ctx, "billing", []system.StateUpdate{
				{CVE: "cve-2024-0001", State: system.StateRemediated},
				{CVE: "cve-2024-9999", State: system.StateRemediated},
			}, "carol@example.com")

			Expect(results).To(HaveLen(2))
			Expect(results[0].Success).To(BeTrue())
			Expect(results[1].Success).To(BeFalse())
			Expect(results[1].Details).To(ContainSubstring("does not exist"))

			stored, err := mockRepo.GetVulnerability(ctx, "billing", "cve-2024-0001")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.State).To(Equal(system.StateRemediated))
		})

		It("should keep the first state for a duplicated item", func() {
			results := service.UpdateVulnerabilitiesStateBulk(ctx, "billing", []system.StateUpdate{
				{CVE: "cve-2024-0001", State: system.StateRemediated},
				{CVE: "cve-2024-0001", State: system.StateOpen},
			}, "carol@example.com")

			Expect(results).To(HaveLen(1))
			Expect(results[0].Success).To(BeTrue())

			stored, err := mockRepo.GetVulnerability(ctx, "billing", "cve-2024-0001")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.State).To(Equal(system.StateRemediated))
		})
	})
})
