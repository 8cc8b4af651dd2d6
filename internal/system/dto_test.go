package system_test

import (
	"github.com/frahmantamala/vuln-management/internal/system"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Request Validation", func() {
	Describe("CreateSystemDTO", func() {
		It("should accept a well-formed request", func() {
			dto := system.CreateSystemDTO{Name: "billing-api", Description: "billing service"}
			Expect(dto.Validate()).To(Succeed())
		})

		It("should reject a name that is too short", func() {
			dto := system.CreateSystemDTO{Name: "abc", Description: "billing service"}
			Expect(dto.Validate()).To(HaveOccurred())
		})

		It("should reject a name with invalid characters", func() {
			dto := system.CreateSystemDTO{Name: "billing api!", Description: "billing service"}
			Expect(dto.Validate()).To(HaveOccurred())
		})

		It("should reject a description that is too long", func() {
			long := make([]byte, 60)
			for i := range long {
				long[i] = 'a'
			}
			dto := system.CreateSystemDTO{Name: "billing-api", Description: string(long)}
			Expect(dto.Validate()).To(HaveOccurred())
		})
	})

	Describe("AddUserDTO", func() {
		It("should accept each defined role", func() {
			for _, role := range []string{"owner", "reporter", "viewer"} {
				dto := system.AddUserDTO{Email: "bob@example.com", Role: role}
				Expect(dto.Validate()).To(Succeed())
			}
		})

		It("should reject an unknown role", func() {
			dto := system.AddUserDTO{Email: "bob@example.com", Role: "admin"}
			Expect(dto.Validate()).To(HaveOccurred())
		})

		It("should reject a malformed email", func() {
			dto := system.AddUserDTO{Email: "not-an-email", Role: "viewer"}
			Expect(dto.Validate()).To(HaveOccurred())
		})
	})

	Describe("VulnerabilityDTO", func() {
		It("should accept upper and lower case ids", func() {
			Expect(system.VulnerabilityDTO{CVE: "CVE-2024-1234"}.Validate()).To(Succeed())
			Expect(system.VulnerabilityDTO{CVE: "cve-2024-1234"}.Validate()).To(Succeed())
		})

		It("should reject a malformed id", func() {
			for _, cve := range []string{"", "cve-24-1234", "cve-2024-12", "vuln-2024-1234", "cve-2024-1234-extra-long-id"} {
				Expect(system.VulnerabilityDTO{CVE: cve}.Validate()).To(HaveOccurred())
			}
		})
	})

	Describe("UpdateVulnerabilityDTO", func() {
		It("should accept both lifecycle states", func() {
			for _, state := range []string{"open", "remediated"} {
				dto := system.UpdateVulnerabilityDTO{CVE: "cve-2024-1234", State: state}
				Expect(dto.Validate()).To(Succeed())
			}
		})

		It("should reject an unknown state", func() {
			dto := system.UpdateVulnerabilityDTO{CVE: "cve-2024-1234", State: "closed"}
			Expect(dto.Validate()).To(HaveOccurred())
		})

		It("should reject a malformed id before the state", func() {
			dto := system.UpdateVulnerabilityDTO{CVE: "bad", State: "open"}
			Expect(dto.Validate()).To(HaveOccurred())
		})
	})
})
