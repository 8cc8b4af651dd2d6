package system

import (
	"context"
	"sync"

	"github.com/frahmantamala/vuln-management/internal"
)

// MaxBulkItems caps the number of items a single bulk request may carry.
// The transport admission stage enforces it before any orchestration.
const MaxBulkItems = 20

// BulkResult reports the outcome of one item of a bulk operation.
// Details is empty on success and carries the domain failure message
// otherwise.
type BulkResult struct {
	Item    string `json:"item"`
	Success bool   `json:"success"`
	Details string `json:"details"`
}

// StateUpdate pairs a CVE id with its target state for bulk transitions.
type StateUpdate struct {
	CVE   string
	State State
}

// ReportVulnerabilitiesBulk reports each CVE independently and
// concurrently. Duplicates are dropped first-wins before dispatch; one
// item's failure never affects another's outcome, and the batch itself
// always succeeds with a per-item breakdown.
func (s *Service) ReportVulnerabilitiesBulk(ctx context.Context, systemName string, cves []string, reporterEmail string) []BulkResult {
	return s.fanOut(dedupe(cves), func(cve string) error {
		_, err := s.ReportVulnerability(ctx, systemName, cve, reporterEmail)
		return err
	})
}

// UpdateVulnerabilitiesStateBulk applies each state transition
// independently and concurrently, deduplicated by CVE id first-wins.
func (s *Service) UpdateVulnerabilitiesStateBulk(ctx context.Context, systemName string, updates []StateUpdate, actorEmail string) []BulkResult {
	states := make(map[string]State, len(updates))
	cves := make([]string, 0, len(updates))
	for _, update := range updates {
		if _, seen := states[update.CVE]; seen {
			continue
		}
		states[update.CVE] = update.State
		cves = append(cves, update.CVE)
	}

	return s.fanOut(cves, func(cve string) error {
		return s.UpdateVulnerabilityState(ctx, systemName, cve, states[cve], actorEmail)
	})
}

// fanOut runs op once per item in its own goroutine and joins all of
// them before returning. Results keep the input order.
func (s *Service) fanOut(items []string, op func(item string) error) []BulkResult {
	results := make([]BulkResult, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item string) {
			defer wg.Done()
			result := BulkResult{Item: item, Success: true}
			if err := op(item); err != nil {
				result.Success = false
				result.Details = failureDetails(err)
			}
			results[i] = result
		}(i, item)
	}
	wg.Wait()

	return results
}

// dedupe keeps the first occurrence of each item, preserving order.
func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	deduped := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		deduped = append(deduped, item)
	}
	return deduped
}

func failureDetails(err error) string {
	if appErr, ok := internal.IsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}
