package system

import (
	"context"
	"errors"
	"fmt"

	"github.com/frahmantamala/vuln-management/internal"
	"github.com/frahmantamala/vuln-management/internal/datastore"
)

// DatastoreRepository persists systems and their owned records in the
// key/range store: partition "SYSTEM#<name>", record kinds
// "SYSTEM#<name>", "USER#<email>", "CVE#<cve>".
type DatastoreRepository struct {
	store datastore.Store
}

func NewDatastoreRepository(store datastore.Store) Repository {
	return &DatastoreRepository{store: store}
}

func systemKey(name string) string {
	return fmt.Sprintf("SYSTEM#%s", name)
}

func memberKey(email string) string {
	return fmt.Sprintf("USER#%s", email)
}

func cveKey(cve string) string {
	return fmt.Sprintf("CVE#%s", cve)
}

func (r *DatastoreRepository) CreateSystem(ctx context.Context, s *System) error {
	attrs, err := datastore.Encode(s)
	if err != nil {
		return err
	}
	return r.store.PutNew(ctx, systemKey(s.Name), systemKey(s.Name), attrs)
}

func (r *DatastoreRepository) GetSystem(ctx context.Context, name string) (*System, error) {
	items, err := r.store.Query(ctx, systemKey(name), systemKey(name))
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		var record System
		if err := datastore.Decode(item, &record); err != nil {
			return nil, err
		}
		if record.Name == name {
			return &record, nil
		}
	}
	return nil, nil
}

func (r *DatastoreRepository) AddSystemUser(ctx context.Context, su *SystemUser) error {
	attrs, err := datastore.Encode(su)
	if err != nil {
		return err
	}
	return r.store.PutNew(ctx, systemKey(su.SystemName), memberKey(su.Email), attrs)
}

func (r *DatastoreRepository) GetSystemUser(ctx context.Context, systemName, email string) (*SystemUser, error) {
	items, err := r.store.Query(ctx, systemKey(systemName), memberKey(email))
	if err != nil {
		return nil, err
	}
	// prefix query; match the exact email
	for _, item := range items {
		var record SystemUser
		if err := datastore.Decode(item, &record); err != nil {
			return nil, err
		}
		if record.Email == email {
			return &record, nil
		}
	}
	return nil, nil
}

func (r *DatastoreRepository) CreateVulnerability(ctx context.Context, v *Vulnerability) error {
	attrs, err := datastore.Encode(v)
	if err != nil {
		return err
	}
	return r.store.PutNew(ctx, systemKey(v.SystemName), cveKey(v.CVE), attrs)
}

func (r *DatastoreRepository) GetVulnerability(ctx context.Context, systemName, cve string) (*Vulnerability, error) {
	items, err := r.store.Query(ctx, systemKey(systemName), cveKey(cve))
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		var record Vulnerability
		if err := datastore.Decode(item, &record); err != nil {
			return nil, err
		}
		if record.CVE == cve {
			return &record, nil
		}
	}
	return nil, nil
}

func (r *DatastoreRepository) ListVulnerabilities(ctx context.Context, systemName string) ([]Vulnerability, error) {
	items, err := r.store.Query(ctx, systemKey(systemName), "CVE#")
	if err != nil {
		return nil, err
	}

	vulns := make([]Vulnerability, 0, len(items))
	for _, item := range items {
		var record Vulnerability
		if err := datastore.Decode(item, &record); err != nil {
			return nil, err
		}
		vulns = append(vulns, record)
	}
	return vulns, nil
}

func (r *DatastoreRepository) UpdateVulnerability(ctx context.Context, systemName, cve string, patch VulnerabilityPatch) error {
	attrs, err := datastore.Encode(patch)
	if err != nil {
		return err
	}
	if err := r.store.Update(ctx, systemKey(systemName), cveKey(cve), attrs); err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return internal.ErrVulnerabilityNotFound
		}
		return err
	}
	return nil
}
