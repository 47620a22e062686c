package models

import "time"

// Listing statuses the settlement core flips through the listing
// collaborator. Catalog CRUD and moderation live outside this module.
const (
	ListingStatusPublished     = "published"
	ListingStatusInTransaction = "in_transaction"
	ListingStatusSold          = "sold"
	ListingStatusHidden        = "hidden"
)

// Listing is the read-side projection the settlement core needs: owner,
// price and status.
type Listing struct {
	ID        uint   `gorm:"primarykey"`
	SellerID  uint   `gorm:"not null;index"`
	Title     string `gorm:"not null"`
	Price     int64  `gorm:"not null"` // minor units
	Status    string `gorm:"not null;default:'published';index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Sellable reports whether a deposit may be opened against the listing.
func (l *Listing) Sellable() bool {
	return l.Status == ListingStatusPublished
}
