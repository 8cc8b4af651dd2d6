package user

import (
	"context"
	"fmt"

	"github.com/frahmantamala/vuln-management/internal/datastore"
)

// DatastoreRepository persists users in the key/range store under
// hk=rk="USER#<email>".
type DatastoreRepository struct {
	store datastore.Store
}

func NewDatastoreRepository(store datastore.Store) Repository {
	return &DatastoreRepository{store: store}
}

func userKey(email string) string {
	return fmt.Sprintf("USER#%s", email)
}

func (r *DatastoreRepository) Save(ctx context.Context, u *User) error {
	attrs, err := datastore.Encode(u)
	if err != nil {
		return err
	}
	return r.store.Put(ctx, userKey(u.Email), userKey(u.Email), attrs)
}

func (r *DatastoreRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	items, err := r.store.Query(ctx, userKey(email), userKey(email))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	var record User
	if err := datastore.Decode(items[0], &record); err != nil {
		return nil, err
	}
	return &record, nil
}
