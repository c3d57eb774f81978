// AngelaMos | 2026
// entity.go

package printjob

import (
	"time"

	"github.com/shopspring/decimal"
)

// JobType is one entry of the print price list.
type JobType struct {
	ID          string          `db:"id"`
	Format      string          `db:"format"`
	Color       bool            `db:"color"`
	Description string          `db:"description"`
	Price       decimal.Decimal `db:"price"`
	Active      bool            `db:"active"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// PrintJob is an uploaded file waiting to be printed. Order lines keep
// pointing at it until retention purges the row.
type PrintJob struct {
	ID               string    `db:"id"`
	StorageKey       string    `db:"storage_key"`
	URL              string    `db:"url"`
	Format           string    `db:"format"`
	Color            bool      `db:"color"`
	OriginalFilename string    `db:"original_filename"`
	UserID           *string   `db:"user_id"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
	LastAccessed     time.Time `db:"last_accessed"`
}

type PurgeResult struct {
	Removed         int `json:"removed"`
	StorageFailures int `json:"storage_failures"`
}
