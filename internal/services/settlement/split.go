package settlement

// DefaultPlatformShareCap is the ceiling on the platform's cut of an
// overdue split, in minor units.
const DefaultPlatformShareCap int64 = 10_000_000

// Overdue split rates, in percent.
const (
	buyerSharePct    = 50
	sellerSharePct   = 30
	platformSharePct = 20
)

// Split is the forced distribution of a deposit when the buyer misses
// the remaining-payment deadline.
type Split struct {
	Buyer    int64
	Seller   int64
	Platform int64
}

// ComputeOverdueSplit distributes amount 50/30/20 between buyer, seller
// and platform. The platform share is capped; whatever the cap shaves off
// goes back to the buyer. The three shares always sum to amount exactly,
// because the buyer share is computed as the remainder.
func ComputeOverdueSplit(amount, platformCap int64) Split {
	seller := roundShare(amount, sellerSharePct)
	platform := roundShare(amount, platformSharePct)
	if platform > platformCap {
		platform = platformCap
	}
	return Split{
		Buyer:    amount - seller - platform,
		Seller:   seller,
		Platform: platform,
	}
}

// roundShare computes pct percent of amount, rounding half up.
func roundShare(amount int64, pct int64) int64 {
	return (amount*pct + 50) / 100
}
