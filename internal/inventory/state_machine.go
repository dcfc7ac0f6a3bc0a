package inventory

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"agrimarket-backend/internal/domain"
	"agrimarket-backend/internal/pkg/apperr"
)

// DefaultCodePrefix prefixes generated listing codes.
const DefaultCodePrefix = "PL"

const codeSuffixLen = 5

const codeAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// SetAvailableQuantity clamps requested to [0, amount] and applies the
// quantity-driven status policy: 0 means sold_out, recovering from
// sold_out means active. Quantity changes never touch expired or
// cancelled listings' status; available is still updated on those.
func SetAvailableQuantity(l *domain.Listing, requested float64) error {
	if math.IsNaN(requested) || math.IsInf(requested, 0) {
		return apperr.E(apperr.Validation, "Requested quantity must be a finite number")
	}
	if l.QuantityAmount <= 0 {
		return apperr.E(apperr.Validation, "Listing quantity amount must be positive")
	}

	clamped := math.Max(0, math.Min(requested, l.QuantityAmount))
	l.QuantityAvailable = clamped

	terminal := l.Status == domain.StatusExpired || l.Status == domain.StatusCancelled
	if !terminal {
		if clamped == 0 {
			l.Status = domain.StatusSoldOut
		} else if l.Status == domain.StatusSoldOut {
			l.Status = domain.StatusActive
		}
	}
	return Validate(l)
}

// NewListingCode generates <prefix><base36 ms timestamp><5 random base36>,
// upper-cased. Uniqueness is enforced by the storage layer's unique
// index; the create path retries once with a fresh code on conflict.
func NewListingCode(prefix string) string {
	if prefix == "" {
		prefix = DefaultCodePrefix
	}
	ts := strconv.FormatInt(time.Now().UnixMilli(), 36)
	var b strings.Builder
	for i := 0; i < codeSuffixLen; i++ {
		b.WriteByte(codeAlphabet[rand.Intn(len(codeAlphabet))])
	}
	return strings.ToUpper(prefix + ts + b.String())
}

// Validate checks the listing invariants that must hold after every
// mutation. available == 0 and sold_out imply each other unless the
// listing is expired or cancelled.
func Validate(l *domain.Listing) error {
	if l.QuantityAmount <= 0 {
		return apperr.E(apperr.Validation, "Quantity amount must be positive")
	}
	if l.QuantityAvailable < 0 {
		return apperr.E(apperr.Validation, "Available quantity cannot be negative")
	}
	if l.QuantityAvailable > l.QuantityAmount {
		return apperr.E(apperr.Validation, "Available quantity cannot exceed total amount")
	}
	if l.PricePerUnit < 0 {
		return apperr.E(apperr.Validation, "Price cannot be negative")
	}
	if !domain.ValidStatus(l.Status) {
		return apperr.E(apperr.Validation, fmt.Sprintf("Unknown listing status %q", l.Status))
	}
	if l.Priority != 0 && (l.Priority < 1 || l.Priority > 10) {
		return apperr.E(apperr.Validation, "Priority must be between 1 and 10")
	}
	terminal := l.Status == domain.StatusExpired || l.Status == domain.StatusCancelled
	if l.QuantityAvailable == 0 && !terminal && l.Status != domain.StatusSoldOut {
		return apperr.E(apperr.Validation, "Listing with no available quantity must be sold_out")
	}
	if l.Status == domain.StatusSoldOut && l.QuantityAvailable != 0 {
		return apperr.E(apperr.Validation, "Sold out listing must have no available quantity")
	}
	for _, r := range l.Reviews {
		if r.Rating < 1 || r.Rating > 5 {
			return apperr.E(apperr.Validation, "Rating must be between 1 and 5")
		}
	}
	return nil
}
