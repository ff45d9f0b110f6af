package datastore

import "time"

// kvTable is the base table name; MySQL deployments may prefix it.
const kvTable = "kv_entries"

// KVEntry is one row of the key-value table.
type KVEntry struct {
	Key       string    `gorm:"column:entry_key;primaryKey;type:varchar(191)"`
	Value     []byte    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name for GORM.
func (KVEntry) TableName() string {
	return kvTable
}
