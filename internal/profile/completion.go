// Package profile scores how complete an account's required fields are.
package profile

import (
	"math"
	"strings"

	"agrimarket-backend/internal/domain"
)

// CompleteThreshold is the completion percent at or above which a
// profile counts as complete.
const CompleteThreshold = 80

// CompletionPercent scores the required-field set: name, email, phone,
// location state and location district.
func CompletionPercent(u domain.User) int {
	required := []string{u.Name, u.Email, u.Phone, u.LocationState, u.LocationDistrict}
	filled := 0
	for _, f := range required {
		if strings.TrimSpace(f) != "" {
			filled++
		}
	}
	return int(math.Round(float64(filled) / float64(len(required)) * 100))
}

// IsComplete reports whether the profile meets the completion threshold.
// The result is cached on the account as is_profile_complete on every save.
func IsComplete(u domain.User) bool {
	return CompletionPercent(u) >= CompleteThreshold
}
