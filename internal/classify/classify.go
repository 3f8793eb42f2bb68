// Package classify decides from a profile page whether the username exists.
package classify

import (
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tdh8316/profilescan/internal/model"
)

// Phrases that mark a missing profile. Checked before any positive signal.
var negativePhrases = []string{
	"not found",
	"does not exist",
	"404",
	"no such user",
	"user not found",
	"profile not found",
	"doesn't exist",
}

var positivePhrases = []string{
	"profile",
	"member",
	"user",
	"account",
	"posts",
	"followers",
	"following",
	"tweets",
	"repositories",
}

var titlePhrases = []string{"profile", "user"}

// Classify maps a final response to FOUND or NOT FOUND.
//
// A page with no signal either way is NOT FOUND.
func Classify(statusCode int, body, title string) model.Verdict {
	if statusCode != http.StatusOK {
		return model.VerdictNotFound
	}

	content := strings.ToLower(body)
	if containsAny(content, negativePhrases) {
		return model.VerdictNotFound
	}
	if containsAny(content, positivePhrases) {
		return model.VerdictFound
	}
	if containsAny(strings.ToLower(title), titlePhrases) {
		return model.VerdictFound
	}

	return model.VerdictNotFound
}

// Title returns the text of the first <title> element, or "" when the body
// is not parseable HTML or has no title.
func Title(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
