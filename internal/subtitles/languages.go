package subtitles

import "strings"

var languageCodes = map[string]string{
	"English":       "en",
	"Spanish":       "es",
	"French":        "fr",
	"German":        "de",
	"Italian":       "it",
	"Portuguese":    "pt",
	"Russian":       "ru",
	"Japanese":      "ja",
	"Korean":        "ko",
	"Chinese":       "zh",
	"Arabic":        "ar",
	"Hindi":         "hi",
	"Turkish":       "tr",
	"Dutch":         "nl",
	"Polish":        "pl",
	"Swedish":       "sv",
	"Norwegian":     "no",
	"Danish":        "da",
	"Finnish":       "fi",
	"Greek":         "el",
	"Hebrew":        "he",
	"Thai":          "th",
	"Vietnamese":    "vi",
	"Indonesian":    "id",
	"Malay":         "ms",
	"Filipino":      "tl",
	"Ukrainian":     "uk",
	"Romanian":      "ro",
	"Czech":         "cs",
	"Hungarian":     "hu",
	"Bulgarian":     "bg",
	"Croatian":      "hr",
	"Serbian":       "sr",
	"Slovak":        "sk",
	"Slovenian":     "sl",
	"Estonian":      "et",
	"Latvian":       "lv",
	"Lithuanian":    "lt",
	"Icelandic":     "is",
	"Maltese":       "mt",
	"Georgian":      "ka",
	"Armenian":      "hy",
	"Azerbaijani":   "az",
	"Kazakh":        "kk",
	"Kyrgyz":        "ky",
	"Uzbek":         "uz",
	"Tajik":         "tg",
	"Turkmen":       "tk",
	"Mongolian":     "mn",
	"Persian":       "fa",
	"Urdu":          "ur",
	"Bengali":       "bn",
	"Tamil":         "ta",
	"Telugu":        "te",
	"Marathi":       "mr",
	"Gujarati":      "gu",
	"Kannada":       "kn",
	"Malayalam":     "ml",
	"Punjabi":       "pa",
	"Sinhala":       "si",
	"Nepali":        "ne",
	"Burmese":       "my",
	"Khmer":         "km",
	"Lao":           "lo",
	"Tibetan":       "bo",
	"Uyghur":        "ug",
	"Kurdish":       "ku",
	"Pashto":        "ps",
	"Dari":          "prs",
	"Sindhi":        "sd",
	"Kashmiri":      "ks",
	"Dogri":         "doi",
	"Konkani":       "kok",
	"Manipuri":      "mni",
	"Bodo":          "brx",
	"Sanskrit":      "sa",
	"Santhali":      "sat",
	"Maithili":      "mai",
	"Bhojpuri":      "bho",
	"Awadhi":        "awa",
	"Chhattisgarhi": "hne",
	"Magahi":        "mag",
	"Rajasthani":    "raj",
	"Malvi":         "mup",
	"Bundeli":       "bns",
	"Bagheli":       "bfy",
	"Pahari":        "phr",
	"Kumaoni":       "kfy",
	"Garhwali":      "gbm",
	"Kangri":        "xnr",
}

// LanguageCode maps an English language name to its code. Unknown names are
// lower-cased and used as-is.
func LanguageCode(name string) string {
	if code, ok := languageCodes[name]; ok {
		return code
	}
	return strings.ToLower(name)
}
