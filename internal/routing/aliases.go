package routing

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Alias maps a normalized administrative-region spelling to an office
// display name.
type Alias struct {
	Key    string `yaml:"alias"`
	Office string `yaml:"office"`
}

// defaultAliases is ordered: the substring scan returns the first hit, so
// more specific spellings come before shorter ones they contain.
var defaultAliases = []Alias{
	// cities of republican significance
	{"астана", "Астана"},
	{"нур-султан", "Астана"},
	{"нурсултан", "Астана"},
	{"целиноград", "Астана"},
	{"акмола", "Астана"},
	{"алматы", "Алматы"},
	{"алма-ата", "Алматы"},
	{"шымкент", "Шымкент"},
	{"чимкент", "Шымкент"},

	// oblasts, current names
	{"акмолинская область", "Кокшетау"},
	{"акмолинская", "Кокшетау"},
	{"актюбинская область", "Актобе"},
	{"актюбинская", "Актобе"},
	{"алматинская область", "Алматы"},
	{"алматинская", "Алматы"},
	{"атырауская область", "Атырау"},
	{"атырауская", "Атырау"},
	{"восточно-казахстанская область", "Усть-Каменогорск"},
	{"восточно-казахстанская", "Усть-Каменогорск"},
	{"жамбылская область", "Тараз"},
	{"жамбылская", "Тараз"},
	{"западно-казахстанская область", "Уральск"},
	{"западно-казахстанская", "Уральск"},
	{"карагандинская область", "Караганда"},
	{"карагандинская", "Караганда"},
	{"костанайская область", "Костанай"},
	{"костанайская", "Костанай"},
	{"кызылординская область", "Кызылорда"},
	{"кызылординская", "Кызылорда"},
	{"мангистауская область", "Актау"},
	{"мангистауская", "Актау"},
	{"мангыстауская", "Актау"},
	{"павлодарская область", "Павлодар"},
	{"павлодарская", "Павлодар"},
	{"северо-казахстанская область", "Петропавловск"},
	{"северо-казахстанская", "Петропавловск"},
	{"туркестанская область", "Шымкент"},
	{"туркестанская", "Шымкент"},
	{"область абай", "Усть-Каменогорск"},
	{"абайская", "Усть-Каменогорск"},
	{"область жетісу", "Алматы"},
	{"область жетысу", "Алматы"},
	{"жетысуская", "Алматы"},
	{"область ұлытау", "Караганда"},
	{"область улытау", "Караганда"},
	{"улытауская", "Караганда"},

	// legacy names
	{"южно-казахстанская", "Шымкент"},
	{"чимкентская", "Шымкент"},
	{"семипалатинская", "Усть-Каменогорск"},
	{"гурьевская", "Атырау"},
	{"джамбульская", "Тараз"},
	{"джезказганская", "Караганда"},
	{"талдыкорганская", "Алматы"},
	{"кокчетавская", "Кокшетау"},
	{"кустанайская", "Костанай"},
	{"уральская", "Уральск"},

	// transliterations
	{"nur-sultan", "Астана"},
	{"astana", "Астана"},
	{"almaty", "Алматы"},
	{"shymkent", "Шымкент"},
	{"akmola", "Кокшетау"},
	{"aktobe", "Актобе"},
	{"atyrau", "Атырау"},
	{"east kazakhstan", "Усть-Каменогорск"},
	{"west kazakhstan", "Уральск"},
	{"north kazakhstan", "Петропавловск"},
	{"south kazakhstan", "Шымкент"},
	{"zhambyl", "Тараз"},
	{"karaganda", "Караганда"},
	{"qaraghandy", "Караганда"},
	{"kostanay", "Костанай"},
	{"kyzylorda", "Кызылорда"},
	{"mangystau", "Актау"},
	{"mangistau", "Актау"},
	{"pavlodar", "Павлодар"},
	{"turkestan", "Шымкент"},
	{"abai", "Усть-Каменогорск"},
	{"zhetysu", "Алматы"},
	{"ulytau", "Караганда"},
}

// DefaultAliases returns a copy of the built-in alias table.
func DefaultAliases() []Alias {
	return append([]Alias(nil), defaultAliases...)
}

// AliasTable keeps aliases in insertion order next to an exact-match index.
type AliasTable struct {
	entries []Alias
	exact   map[string]string
}

// NewAliasTable normalizes keys and drops blank entries. When a key repeats,
// the later entry wins for exact lookups while the earlier position is kept
// for the substring scan.
func NewAliasTable(aliases []Alias) *AliasTable {
	t := &AliasTable{exact: make(map[string]string, len(aliases))}
	for _, a := range aliases {
		key := normalizeRegion(a.Key)
		office := strings.TrimSpace(a.Office)
		if key == "" || office == "" {
			continue
		}
		if _, seen := t.exact[key]; !seen {
			t.entries = append(t.entries, Alias{Key: key, Office: office})
		} else {
			for i := range t.entries {
				if t.entries[i].Key == key {
					t.entries[i].Office = office
				}
			}
		}
		t.exact[key] = office
	}
	return t
}

func (t *AliasTable) Len() int {
	return len(t.entries)
}

// Lookup returns the target office name for normalized input: exact key
// first, then the first entry where either string contains the other.
func (t *AliasTable) Lookup(normalized string) (string, bool) {
	if normalized == "" {
		return "", false
	}
	if office, ok := t.exact[normalized]; ok {
		return office, true
	}
	for _, a := range t.entries {
		if strings.Contains(normalized, a.Key) || strings.Contains(a.Key, normalized) {
			return a.Office, true
		}
	}
	return "", false
}

type aliasFile struct {
	Aliases []Alias `yaml:"aliases"`
}

// LoadAliases reads an alias extension file:
//
//	aliases:
//	  - alias: конаев
//	    office: Алматы
func LoadAliases(r io.Reader) ([]Alias, error) {
	var f aliasFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode aliases: %w", err)
	}
	for i, a := range f.Aliases {
		if strings.TrimSpace(a.Key) == "" || strings.TrimSpace(a.Office) == "" {
			return nil, fmt.Errorf("alias entry %d: alias and office are required", i)
		}
	}
	return f.Aliases, nil
}

func normalizeRegion(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
