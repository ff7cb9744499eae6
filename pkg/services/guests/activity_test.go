package guests

import (
	"testing"
	"time"

	"github.com/de-tools/guest-lifecycle/pkg/models/domain"
	"github.com/stretchr/testify/assert"
)

func at(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestActivityEvaluator_LastActivity(t *testing.T) {
	var e ActivityEvaluator

	tests := []struct {
		name string
		user domain.User
		want *time.Time
	}{
		{
			name: "later non-interactive wins",
			user: domain.User{SignInActivity: domain.SignInActivity{
				LastSignIn:               at("2024-01-10"),
				LastNonInteractiveSignIn: at("2024-02-01"),
			}},
			want: at("2024-02-01"),
		},
		{
			name: "later interactive wins",
			user: domain.User{SignInActivity: domain.SignInActivity{
				LastSignIn:               at("2024-03-01"),
				LastNonInteractiveSignIn: at("2024-02-01"),
			}},
			want: at("2024-03-01"),
		},
		{
			name: "only interactive",
			user: domain.User{
				CreatedDateTime: at("2020-01-01"),
				SignInActivity:  domain.SignInActivity{LastSignIn: at("2024-01-10")},
			},
			want: at("2024-01-10"),
		},
		{
			name: "only non-interactive",
			user: domain.User{
				SignInSessionsValidFromDateTime: at("2023-01-01"),
				SignInActivity:                  domain.SignInActivity{LastNonInteractiveSignIn: at("2022-06-01")},
			},
			want: at("2022-06-01"),
		},
		{
			name: "session validity before creation",
			user: domain.User{
				CreatedDateTime:                 at("2020-01-01"),
				SignInSessionsValidFromDateTime: at("2023-01-01"),
			},
			want: at("2023-01-01"),
		},
		{
			name: "creation as last resort",
			user: domain.User{CreatedDateTime: at("2020-01-01")},
			want: at("2020-01-01"),
		},
		{
			name: "nothing known",
			user: domain.User{ID: "u1"},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.LastActivity(tt.user))
		})
	}
}

func TestActivityEvaluator_IsPastThreshold(t *testing.T) {
	var e ActivityEvaluator
	threshold := *at("2024-01-01")

	assert.True(t, e.IsPastThreshold(domain.User{CreatedDateTime: at("2023-12-31")}, threshold))
	assert.False(t, e.IsPastThreshold(domain.User{CreatedDateTime: at("2024-01-01")}, threshold))
	assert.False(t, e.IsPastThreshold(domain.User{CreatedDateTime: at("2024-01-02")}, threshold))

	t.Run("unknown activity is never stale", func(t *testing.T) {
		for _, th := range []time.Time{{}, threshold, time.Now().AddDate(100, 0, 0)} {
			assert.False(t, e.IsPastThreshold(domain.User{ID: "u1"}, th))
		}
	})
}
