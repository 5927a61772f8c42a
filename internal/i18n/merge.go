package i18n

import (
	"sort"
	"strings"
)

// MergeResult reports what happened to an existing catalog during a
// merge, for the builder to log the way buildMessageIni does.
type MergeResult struct {
	// Deleted is the count of messages dropped per language section,
	// because the model no longer produces them.
	Deleted map[string]int
	// MissingTranslations is the count of messages with no translation
	// for a language, only populated when there is more than one
	// model language.
	MissingTranslations map[string]int
	// MissingLanguages lists languages the existing catalog had no
	// section for at all.
	MissingLanguages []string
}

// Merge folds current (the message set and English source text this
// build actually produces) with existing (the previous .message.ini
// content, may be nil) across the model's languages, returning the
// merged Catalog plus a MergeResult for logging.
//
// A message still present keeps whatever translation existing already
// had for it, per language; a message no longer present is dropped and
// counted; a language with no prior section gets one with an empty
// translation for every current message.
func Merge(languages []string, current map[string]string, existing Catalog) (Catalog, MergeResult) {
	merged := Catalog{}
	result := MergeResult{
		Deleted:             map[string]int{},
		MissingTranslations: map[string]int{},
	}

	currentKeys := make([]string, 0, len(current))
	for k := range current {
		currentKeys = append(currentKeys, k)
	}
	sort.Strings(currentKeys)

	for _, lang := range languages {
		oldSection, hadSection := existing[lang]
		if !hadSection {
			result.MissingLanguages = append(result.MissingLanguages, lang)
			oldSection = map[string]string{}
		}

		newSection := map[string]string{}
		for _, key := range currentKeys {
			if tr, ok := oldSection[key]; ok {
				newSection[key] = tr
			} else {
				newSection[key] = ""
			}
			if newSection[key] == "" && len(languages) > 1 {
				result.MissingTranslations[lang]++
			}
		}
		merged[lang] = newSection

		for oldKey := range oldSection {
			if _, stillPresent := current[oldKey]; !stillPresent {
				result.Deleted[lang]++
			}
		}
	}

	return merged, result
}

// messageIniHeader is the literal comment block every generated
// .message.ini carries, reproduced verbatim from the original builder.
const messageIniHeader = `;
; This ini-file is generated by openM++ compiler.
; It contains the model messages for translation.
; You may edit translated values in this file
; and that will not be overwritten by subsequent builds,
; as long as the message text itself does not change.
;
`

// Write renders cat as .message.ini text: the fixed header comment, then
// one [Section] per language in languages order, a blank line after each
// section, keys sorted, and both key and value quoted whenever either
// starts or ends with whitespace (preferring double quotes, falling
// back to single quotes only when the key itself contains a double
// quote). Lines end in \r\n, matching the original writer.
func Write(languages []string, cat Catalog) string {
	var b strings.Builder
	b.WriteString(strings.ReplaceAll(messageIniHeader, "\n", "\r\n"))

	for _, lang := range languages {
		b.WriteString("[" + lang + "]\r\n")

		section := cat[lang]
		keys := make([]string, 0, len(section))
		for k := range section {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			v := section[k]
			b.WriteString(quoteIfNeeded(k, v))
			b.WriteString("\r\n")
		}
		b.WriteString("\r\n")
	}
	return b.String()
}

// quoteIfNeeded renders "key = value", quoting key and value together
// when either has leading/trailing whitespace that a plain INI reader
// would otherwise trim away.
func quoteIfNeeded(key, value string) string {
	needsQuote := hasEdgeWhitespace(key) || hasEdgeWhitespace(value)
	if !needsQuote {
		return key + " = " + value
	}

	quote := `"`
	if strings.Contains(key, `"`) {
		quote = "'"
	}
	return quote + key + quote + " = " + quote + value + quote
}

func hasEdgeWhitespace(s string) bool {
	if s == "" {
		return false
	}
	return s[0] == ' ' || s[0] == '\t' || s[len(s)-1] == ' ' || s[len(s)-1] == '\t'
}
