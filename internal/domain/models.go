package domain

import (
	"encoding/json"
	"time"
)

// ImportRequest is the payload sent to the scraping service and accepted by the API.
type ImportRequest struct {
	URL string `json:"url"`
}

// Recipe is the record produced by the scraping service. Its shape is owned by
// the remote side; Raw keeps the exact bytes of the response's data field.
type Recipe struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Ingredients []string `json:"ingredients,omitempty"`
	Steps       []string `json:"steps,omitempty"`
	Image       string   `json:"image,omitempty"`
	Yield       string   `json:"yield,omitempty"`
	SourceURL   string   `json:"url,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// DecodeRecipe reads the known recipe fields out of raw on a best-effort basis.
// raw may have any JSON shape: fields that are absent or shaped differently
// stay empty, and Raw always holds raw unchanged.
func DecodeRecipe(raw json.RawMessage) *Recipe {
	r := &Recipe{Raw: append(json.RawMessage(nil), raw...)}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return r
	}
	r.ID = scalarText(fields["id"])
	r.Title = field[string](fields, "title")
	r.Description = field[string](fields, "description")
	r.Ingredients = field[[]string](fields, "ingredients")
	r.Steps = field[[]string](fields, "steps")
	r.Image = field[string](fields, "image")
	r.Yield = scalarText(fields["yield"])
	r.SourceURL = field[string](fields, "url")
	return r
}

func field[T any](fields map[string]json.RawMessage, key string) T {
	var v T
	raw, ok := fields[key]
	if !ok {
		return v
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		var zero T
		return zero
	}
	return v
}

// scalarText returns a JSON string's value or a number's literal text.
func scalarText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// MarshalJSON writes the recipe exactly as the scraping service returned it.
func (r Recipe) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	type plain Recipe
	return json.Marshal(plain(r))
}

// HistoryEntry is one locally recorded import.
type HistoryEntry struct {
	ID         string    `json:"id"`
	RecipeID   string    `json:"recipe_id"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	ImportedAt time.Time `json:"imported_at"`
}

// RecipeIDs returns the distinct recipe ids of entries in first-seen order.
func RecipeIDs(entries []HistoryEntry) []string {
	seen := make(map[string]struct{}, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.RecipeID]; ok {
			continue
		}
		seen[e.RecipeID] = struct{}{}
		ids = append(ids, e.RecipeID)
	}
	return ids
}

// EmbeddedRecipe is a recipe's embedding text and vector, ready to be stored.
type EmbeddedRecipe struct {
	RecipeID  string
	Text      string
	Embedding []float32
}

// HostUpdate is the API payload for switching the scrape host.
type HostUpdate struct {
	Host string `json:"host"`
}
