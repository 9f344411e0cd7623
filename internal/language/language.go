package language

import (
	"strings"

	xlang "golang.org/x/text/language"
)

type entry struct {
	code    string // ISO 639-1 (2-letter)
	display string
	word    string // full word form, e.g. "english"
}

// Reviews can be authored in any of these locales. Whether an installed
// synthesis engine can actually voice a given locale is a separate
// question answered at engine selection time.
var supported = []entry{
	{"en", "English", "english"},
	{"es", "Spanish", "spanish"},
	{"fr", "French", "french"},
	{"de", "German", "german"},
	{"it", "Italian", "italian"},
	{"pt", "Portuguese", "portuguese"},
	{"ja", "Japanese", "japanese"},
	{"ko", "Korean", "korean"},
	{"zh", "Chinese", "chinese"},
}

var (
	byCode map[string]*entry
	byWord map[string]*entry
)

func init() {
	byCode = make(map[string]*entry, len(supported))
	byWord = make(map[string]*entry, len(supported))
	for i := range supported {
		e := &supported[i]
		byCode[e.code] = e
		byWord[e.word] = e
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byCode[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	// Fall back to BCP 47 parsing so region-qualified tags like "en-US"
	// resolve to their base language.
	tag, err := xlang.Parse(code)
	if err != nil {
		return nil
	}
	base, _ := tag.Base()
	if e, ok := byCode[base.String()]; ok {
		return e
	}
	return nil
}

// Normalize converts any recognized code, word form, or BCP 47 tag to the
// canonical 2-letter code. Returns empty string for unrecognized input.
func Normalize(code string) string {
	if e := lookup(code); e != nil {
		return e.code
	}
	return ""
}

// Supported reports whether the code resolves to a supported review locale.
func Supported(code string) bool {
	return lookup(code) != nil
}

// DisplayName returns a human-readable name for any recognized code, or
// the uppercased input when unrecognized.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// Codes returns the supported locale codes in declaration order.
func Codes() []string {
	codes := make([]string, len(supported))
	for i, e := range supported {
		codes[i] = e.code
	}
	return codes
}
