package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/frahmantamala/vuln-management/internal/datastore"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Record is the single-table layout backing the key/range store.
type Record struct {
	HK         string `gorm:"column:hk;primaryKey"`
	RK         string `gorm:"column:rk;primaryKey"`
	Attributes []byte `gorm:"column:attributes;not null"`
}

func (Record) TableName() string {
	return "records"
}

// RecordStore implements datastore.Store on GORM. The *gorm.DB must be
// opened with TranslateError so duplicate keys surface as
// gorm.ErrDuplicatedKey regardless of driver.
type RecordStore struct {
	db *gorm.DB
}

func NewRecordStore(db *gorm.DB) datastore.Store {
	return &RecordStore{db: db}
}

func (s *RecordStore) Put(ctx context.Context, hashKey, rangeKey string, attrs datastore.Item) error {
	raw, err := json.Marshal(attrs)
	if err != nil {
		return err
	}
	record := Record{HK: hashKey, RK: rangeKey, Attributes: raw}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hk"}, {Name: "rk"}},
		DoUpdates: clause.AssignmentColumns([]string{"attributes"}),
	}).Create(&record).Error
}

func (s *RecordStore) PutNew(ctx context.Context, hashKey, rangeKey string, attrs datastore.Item) error {
	raw, err := json.Marshal(attrs)
	if err != nil {
		return err
	}
	record := Record{HK: hashKey, RK: rangeKey, Attributes: raw}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return datastore.ErrConflict
		}
		return err
	}
	return nil
}

func (s *RecordStore) Query(ctx context.Context, hashKey, rangeKeyPrefix string) ([]datastore.Item, error) {
	var records []Record
	err := s.db.WithContext(ctx).
		Where("hk = ? AND rk LIKE ?", hashKey, rangeKeyPrefix+"%").
		Order("rk").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	items := make([]datastore.Item, 0, len(records))
	for _, record := range records {
		var item datastore.Item
		if err := json.Unmarshal(record.Attributes, &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Update merges patch into the stored attributes inside a transaction so
// the read and the write see a consistent record.
func (s *RecordStore) Update(ctx context.Context, hashKey, rangeKey string, patch datastore.Item) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record Record
		err := tx.Where("hk = ? AND rk = ?", hashKey, rangeKey).
			First(&record).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return datastore.ErrNotFound
			}
			return err
		}

		var attrs datastore.Item
		if err := json.Unmarshal(record.Attributes, &attrs); err != nil {
			return err
		}
		for key, value := range patch {
			attrs[key] = value
		}
		merged, err := json.Marshal(attrs)
		if err != nil {
			return err
		}

		return tx.Model(&Record{}).
			Where("hk = ? AND rk = ?", hashKey, rangeKey).
			Update("attributes", merged).Error
	})
}
