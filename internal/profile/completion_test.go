package profile

import (
	"testing"

	"agrimarket-backend/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestCompletionPercent(t *testing.T) {
	cases := []struct {
		name string
		user domain.User
		want int
	}{
		{"empty", domain.User{}, 0},
		{"name only", domain.User{Name: "Asha"}, 20},
		{"contact only", domain.User{Email: "a@b.com", Phone: "9876543210"}, 40},
		{"missing district", domain.User{
			Name: "Asha", Email: "a@b.com", Phone: "9876543210", LocationState: "Karnataka",
		}, 80},
		{"all filled", domain.User{
			Name: "Asha", Email: "a@b.com", Phone: "9876543210",
			LocationState: "Karnataka", LocationDistrict: "Mysuru",
		}, 100},
		{"whitespace does not count", domain.User{
			Name: "  ", Email: "a@b.com", Phone: "9876543210",
		}, 40},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CompletionPercent(tc.user))
		})
	}
}

func TestIsComplete_ThresholdAt80(t *testing.T) {
	u := domain.User{
		Name: "Asha", Email: "a@b.com", Phone: "9876543210", LocationState: "Karnataka",
	}
	assert.True(t, IsComplete(u)) // 80 meets the threshold

	u.LocationState = ""
	assert.False(t, IsComplete(u)) // 60 does not
}
