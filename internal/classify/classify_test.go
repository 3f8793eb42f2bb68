package classify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tdh8316/profilescan/internal/classify"
	"github.com/tdh8316/profilescan/internal/model"
)

func TestClassify(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		status int
		body   string
		title  string
		want   model.Verdict
	}{
		{
			name:   "nonOKStatusWins",
			status: 404,
			body:   "profile followers 500",
			want:   model.VerdictNotFound,
		},
		{
			name:   "redirectStatusIsNotFound",
			status: 302,
			body:   "user profile",
			want:   model.VerdictNotFound,
		},
		{
			name:   "negativeBeatsPositive",
			status: 200,
			body:   "This profile was not found",
			title:  "Error",
			want:   model.VerdictNotFound,
		},
		{
			name:   "negativeIsCaseInsensitive",
			status: 200,
			body:   "USER NOT FOUND on this PROFILE page",
			want:   model.VerdictNotFound,
		},
		{
			name:   "bare404InBody",
			status: 200,
			body:   "error 404 account",
			want:   model.VerdictNotFound,
		},
		{
			name:   "positivePhrase",
			status: 200,
			body:   "user profile followers: 120",
			want:   model.VerdictFound,
		},
		{
			name:   "positiveRepositories",
			status: 200,
			body:   "12 Repositories",
			want:   model.VerdictFound,
		},
		{
			name:   "titleFallback",
			status: 200,
			body:   "nothing to see",
			title:  "Alice - Profile",
			want:   model.VerdictFound,
		},
		{
			name:   "noSignalIsNotFound",
			status: 200,
			body:   "hello world",
			title:  "Home",
			want:   model.VerdictNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, classify.Classify(tt.status, tt.body, tt.title))
		})
	}
}

func TestTitle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Alice's Profile", classify.Title("<html><head><title> Alice's Profile </title></head><body></body></html>"))
	assert.Equal(t, "first", classify.Title("<title>first</title><title>second</title>"))
	assert.Empty(t, classify.Title("plain text, no markup"))
}
