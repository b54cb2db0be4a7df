package embedding

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/recipe-importer/internal/domain"
)

const MaxTextLen = 8_000

// RecipeText builds the text that represents a recipe in embedding space.
// Scraped fields often carry markup, so every field is reduced to plain text.
func RecipeText(r *domain.Recipe) string {
	var parts []string
	add := func(prefix string, fields ...string) {
		var clean []string
		for _, f := range fields {
			if t := plainText(f); t != "" {
				clean = append(clean, t)
			}
		}
		if len(clean) > 0 {
			parts = append(parts, prefix+strings.Join(clean, "; "))
		}
	}

	add("", r.Title)
	add("", r.Description)
	add("Ingredients: ", r.Ingredients...)
	add("Steps: ", r.Steps...)

	return truncate(strings.Join(parts, "\n"), MaxTextLen)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}
