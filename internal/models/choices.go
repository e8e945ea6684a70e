package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Choice is a canonical key with its display label.
type Choice struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Catalog is a fixed choice set that also tolerates custom values.
type Catalog struct {
	choices []Choice
	index   map[string]Choice // lower-cased key and label
}

func newCatalog(choices []Choice) *Catalog {
	c := &Catalog{choices: choices, index: make(map[string]Choice, len(choices)*2)}
	for _, ch := range choices {
		c.index[strings.ToLower(ch.Key)] = ch
		c.index[strings.ToLower(ch.Label)] = ch
	}
	return c
}

// Genres sorted by how common they are.
var Genres = newCatalog([]Choice{
	{"rock", "Rock"},
	{"pop", "Pop"},
	{"indie", "Indie"},
	{"hip-hop", "Hip-Hop"},
	{"electronic", "Electronic"},
	{"jazz", "Jazz"},
	{"blues", "Blues"},
	{"metal", "Metal"},
	{"punk", "Punk"},
	{"alternative", "Alternative"},
	{"folk", "Folk"},
	{"country", "Country"},
	{"r&b", "R&B"},
	{"classical", "Classical"},
	{"opm", "OPM"},
})

var Instruments = newCatalog([]Choice{
	{"guitar", "Guitar"},
	{"bass", "Bass"},
	{"drums", "Drums"},
	{"piano", "Piano"},
	{"vocals", "Vocals"},
	{"keyboard", "Keyboard"},
	{"violin", "Violin"},
	{"saxophone", "Saxophone"},
	{"trumpet", "Trumpet"},
	{"percussion", "Percussion"},
})

func (c *Catalog) Choices() []Choice {
	out := make([]Choice, len(c.choices))
	copy(out, c.choices)
	return out
}

// Lookup finds a choice by key or label, ignoring case and surrounding space.
func (c *Catalog) Lookup(value string) (Choice, bool) {
	ch, ok := c.index[strings.ToLower(strings.TrimSpace(value))]
	return ch, ok
}

// Label returns the display label for value; custom values are capitalised.
func (c *Catalog) Label(value string) string {
	if ch, ok := c.Lookup(value); ok {
		return ch.Label
	}
	return capitalize(strings.TrimSpace(value))
}

// Normalize turns raw form input into stored display values. Entries may
// themselves be comma-joined. Known keys and labels become the label,
// custom values are kept as typed. Duplicates are dropped, order is kept.
func (c *Catalog) Normalize(values []string) StringList {
	var out StringList
	seen := make(map[string]bool)
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			v := part
			if ch, ok := c.Lookup(part); ok {
				v = ch.Label
			}
			k := strings.ToLower(v)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, v)
		}
	}
	return out
}

// Keys maps stored values back to canonical keys for pre-selecting an edit
// form. Custom values come back lower-cased.
func (c *Catalog) Keys(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if ch, ok := c.Lookup(v); ok {
			out = append(out, ch.Key)
			continue
		}
		out = append(out, strings.ToLower(strings.TrimSpace(v)))
	}
	return out
}

// Labels maps stored values to display labels.
func (c *Catalog) Labels(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, c.Label(v))
	}
	return out
}

// Used returns the catalog entries present in any of lists, in catalog order.
func (c *Catalog) Used(lists ...[]string) []Choice {
	present := make(map[string]bool)
	for _, list := range lists {
		for _, v := range list {
			if ch, ok := c.Lookup(v); ok {
				present[ch.Key] = true
			}
		}
	}
	out := make([]Choice, 0, len(present))
	for _, ch := range c.choices {
		if present[ch.Key] {
			out = append(out, ch)
		}
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// StringList is an ordered list of values stored as a JSON array.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	return encodeJSON([]string(l))
}

func (l *StringList) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("StringList: unsupported source type %T", src)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		*l = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return errors.New("StringList: invalid JSON array")
	}
	*l = out
	return nil
}

func (StringList) GormDataType() string { return "text" }

// Contains reports whether the list holds value, ignoring case.
func (l StringList) Contains(value string) bool {
	for _, v := range l {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

// Joined renders the list the way the old comma-delimited columns looked.
func (l StringList) Joined() string {
	return strings.Join(l, ", ")
}

// LikeEscape goes after every LIKE built from ContainsPattern or
// ListElementPattern. '!' works the same on sqlite, mysql and postgres,
// where a backslash literal does not.
const LikeEscape = " ESCAPE '!'"

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// EscapeLike makes % and _ in user input match literally.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// ContainsPattern is a substring LIKE pattern for s.
func ContainsPattern(s string) string {
	return "%" + EscapeLike(s) + "%"
}

// ListElementPattern builds a LIKE pattern matching one exact element of a
// StringList column compared through LOWER().
func ListElementPattern(value string) string {
	s, _ := encodeJSON(strings.ToLower(strings.TrimSpace(value)))
	return ContainsPattern(s)
}

// encodeJSON marshals without HTML escaping so "R&B" stays searchable with LIKE.
func encodeJSON(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
