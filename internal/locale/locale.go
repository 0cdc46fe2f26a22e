package locale

import "strings"

const (
	LanguageEnglish = "en"
	LanguageHindi   = "hi"
	LanguageUrdu    = "ur"
	LanguageTamil   = "ta"
)

// Languages 是支持的界面语言，第一个为默认值
var Languages = []string{LanguageEnglish, LanguageHindi, LanguageUrdu, LanguageTamil}

type Preference struct {
	Language string
	Locale   string
	HTMLLang string
	// Dir 为 rtl 或 ltr
	Dir string
}

var languageNames = map[string]string{
	"english": LanguageEnglish,
	"hindi":   LanguageHindi,
	"urdu":    LanguageUrdu,
	"tamil":   LanguageTamil,
}

// NormalizeLanguage 接受语言代码、区域标签或英文名，无法识别时返回空串
func NormalizeLanguage(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}
	if code, ok := languageNames[trimmed]; ok {
		return code
	}
	base, _, _ := strings.Cut(strings.ReplaceAll(trimmed, "_", "-"), "-")
	for _, lang := range Languages {
		if base == lang {
			return lang
		}
	}
	return ""
}

// IsSupported 报告 raw 能否归一化为支持的语言
func IsSupported(raw string) bool {
	return NormalizeLanguage(raw) != ""
}

// LanguageFromAcceptLanguage 按出现顺序返回第一个支持的语言
func LanguageFromAcceptLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag, _, _ := strings.Cut(part, ";")
		if lang := NormalizeLanguage(tag); lang != "" {
			return lang
		}
	}
	return ""
}

func PreferenceForLanguage(language string) Preference {
	switch NormalizeLanguage(language) {
	case LanguageHindi:
		return Preference{Language: LanguageHindi, Locale: "hi_IN", HTMLLang: "hi-IN", Dir: "ltr"}
	case LanguageUrdu:
		return Preference{Language: LanguageUrdu, Locale: "ur_PK", HTMLLang: "ur-PK", Dir: "rtl"}
	case LanguageTamil:
		return Preference{Language: LanguageTamil, Locale: "ta_IN", HTMLLang: "ta-IN", Dir: "ltr"}
	default:
		return Preference{Language: LanguageEnglish, Locale: "en_US", HTMLLang: "en-US", Dir: "ltr"}
	}
}
