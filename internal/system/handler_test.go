package system_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/vuln-management/internal"
	"github.com/frahmantamala/vuln-management/internal/system"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// MockService implements system.ServiceAPI for testing
type MockService struct {
	createSystemName string
	createdBy        string
	addUserEmail     string
	addUserRole      system.Role
	reportedCVE      string
	updatedCVE       string
	updatedState     system.State
	bulkCVEs         []string
	bulkUpdates      []system.StateUpdate
	summarizeName    string
	detailed         bool
	returnErr        error
}

func (m *MockService) CreateSystem(ctx context.Context, name, description, creatorEmail string) (*system.System, error) {
	m.createSystemName = name
	m.createdBy = creatorEmail
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	return &system.System{Name: name, Description: description, CreatedBy: creatorEmail}, nil
}

func (m *MockService) AddUser(ctx context.Context, systemName, email string, role system.Role, addedBy string) (*system.SystemUser, error) {
	m.addUserEmail = email
	m.addUserRole = role
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	return &system.SystemUser{SystemName: systemName, Email: email, Role: role, AddedBy: addedBy}, nil
}

func (m *MockService) ReportVulnerability(ctx context.Context, systemName, cve, reporterEmail string) (*system.Vulnerability, error) {
	m.reportedCVE = cve
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	return &system.Vulnerability{SystemName: systemName, CVE: cve, State: system.StateOpen}, nil
}

func (m *MockService) ReportVulnerabilitiesBulk(ctx context.Context, systemName string, cves []string, reporterEmail string) []system.BulkResult {
	m.bulkCVEs = cves
	results := make([]system.BulkResult, len(cves))
	for i, cve := range cves {
		results[i] = system.BulkResult{Item: cve, Success: true}
	}
	return results
}

func (m *MockService) UpdateVulnerabilityState(ctx context.Context, systemName, cve string, state system.State, actorEmail string) error {
	m.updatedCVE = cve
	m.updatedState = state
	return m.returnErr
}

func (m *MockService) UpdateVulnerabilitiesStateBulk(ctx context.Context, systemName string, updates []system.StateUpdate, actorEmail string) []system.BulkResult {
	m.bulkUpdates = updates
	results := make([]system.BulkResult, len(updates))
	for i, update := range updates {
		results[i] = system.BulkResult{Item: update.CVE, Success: true}
	}
	return results
}

func (m *MockService) Summarize(ctx context.Context, systemName string, detailed bool) (*system.Summary, error) {
	m.summarizeName = systemName
	m.detailed = detailed
	if m.returnErr != nil {
		return nil, m.returnErr
	}
	return &system.Summary{}, nil
}

var _ = Describe("System Handler", func() {
	var (
		mockService *MockService
		handler     *system.Handler
		router      *chi.Mux
	)

	identity := internal.RequestIdentity{
		Email:    "alice@example.com",
		Name:     "Alice",
		Verified: true,
	}

	BeforeEach(func() {
		mockService = &MockService{}
		handler = system.NewHandler(mockService)

		router = chi.NewRouter()
		router.Post("/systems/create", handler.CreateSystem)
		router.Post("/systems/{system_name}/add_user", handler.AddUser)
		router.Post("/systems/{system_name}/report_vuln", handler.ReportVulnerability)
		router.Post("/systems/{system_name}/report_vulns_bulk", handler.ReportVulnerabilitiesBulk)
		router.Post("/systems/{system_name}/update_vuln_state", handler.UpdateVulnerabilityState)
		router.Post("/systems/{system_name}/update_vulns_state_bulk", handler.UpdateVulnerabilitiesStateBulk)
		router.Get("/systems/{system_name}/get_vuln_summary", handler.GetVulnerabilitySummary)
	})

	perform := func(method, target, body string, withIdentity bool) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		if withIdentity {
			req = req.WithContext(internal.ContextWithIdentity(req.Context(), identity))
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	Describe("CreateSystem", func() {
		It("should create the system with the caller as creator", func() {
			rec := perform(http.MethodPost, "/systems/create", `{"name":"Billing-API","description":"billing service"}`, true)
			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(mockService.createSystemName).To(Equal("billing-api"))
			Expect(mockService.createdBy).To(Equal("alice@example.com"))
		})

		It("should reject a request without an identity", func() {
			rec := perform(http.MethodPost, "/systems/create", `{"name":"billing","description":"billing service"}`, false)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("should reject an invalid payload", func() {
			rec := perform(http.MethodPost, "/systems/create", `{"name":"x","description":"billing service"}`, true)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(mockService.createSystemName).To(BeEmpty())
		})

		It("should map a duplicate system to a conflict", func() {
			mockService.returnErr = internal.ErrSystemAlreadyExists
			rec := perform(http.MethodPost, "/systems/create", `{"name":"billing","description":"billing service"}`, true)
			Expect(rec.Code).To(Equal(http.StatusConflict))
		})
	})

	Describe("AddUser", func() {
		It("should normalize the email before the grant", func() {
			rec := perform(http.MethodPost, "/systems/billing/add_user", `{"email":"Bob@Example.com","role":"reporter"}`, true)
			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(mockService.addUserEmail).To(Equal("bob@example.com"))
			Expect(mockService.addUserRole).To(Equal(system.RoleReporter))
		})

		It("should reject an unknown role", func() {
			rec := perform(http.MethodPost, "/systems/billing/add_user", `{"email":"bob@example.com","role":"admin"}`, true)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("ReportVulnerability", func() {
		It("should normalize the CVE id before reporting", func() {
			rec := perform(http.MethodPost, "/systems/billing/report_vuln", `{"cve":"CVE-2024-1234"}`, true)
			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(mockService.reportedCVE).To(Equal("cve-2024-1234"))
		})

		It("should map an unknown CVE to a bad request", func() {
			mockService.returnErr = internal.ErrCVEDoesNotExist
			rec := perform(http.MethodPost, "/systems/billing/report_vuln", `{"cve":"cve-2024-1234"}`, true)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("ReportVulnerabilitiesBulk", func() {
		It("should pass the normalized batch through and report per item", func() {
			rec := perform(http.MethodPost, "/systems/billing/report_vulns_bulk", `[{"cve":"CVE-2024-0001"},{"cve":"cve-2024-0002"}]`, true)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(mockService.bulkCVEs).To(Equal([]string{"cve-2024-0001", "cve-2024-0002"}))

			var results []system.BulkResult
			Expect(json.Unmarshal(rec.Body.Bytes(), &results)).To(Succeed())
			Expect(results).To(HaveLen(2))
		})

		It("should reject a batch containing a malformed id", func() {
			rec := perform(http.MethodPost, "/systems/billing/report_vulns_bulk", `[{"cve":"cve-2024-0001"},{"cve":"bogus"}]`, true)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(mockService.bulkCVEs).To(BeNil())
		})
	})

	Describe("UpdateVulnerabilityState", func() {
		It("should apply the transition", func() {
			rec := perform(http.MethodPost, "/systems/billing/update_vuln_state", `{"cve":"CVE-2024-1234","state":"remediated"}`, true)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(mockService.updatedCVE).To(Equal("cve-2024-1234"))
			Expect(mockService.updatedState).To(Equal(system.StateRemediated))
		})

		It("should map a missing vulnerability to not found", func() {
			mockService.returnErr = internal.ErrVulnerabilityNotFound
			rec := perform(http.MethodPost, "/systems/billing/update_vuln_state", `{"cve":"cve-2024-1234","state":"remediated"}`, true)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("GetVulnerabilitySummary", func() {
		It("should default to the compact summary", func() {
			rec := perform(http.MethodGet, "/systems/Billing/get_vuln_summary", "", true)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(mockService.summarizeName).To(Equal("billing"))
			Expect(mockService.detailed).To(BeFalse())
		})

		It("should request details when asked", func() {
			rec := perform(http.MethodGet, "/systems/billing/get_vuln_summary?detailed=true", "", true)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(mockService.detailed).To(BeTrue())
		})

		It("should ignore an unparseable detailed flag", func() {
			rec := perform(http.MethodGet, "/systems/billing/get_vuln_summary?detailed=maybe", "", true)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(mockService.detailed).To(BeFalse())
		})
	})
})
