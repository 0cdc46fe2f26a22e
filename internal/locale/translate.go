package locale

import "fmt"

// 消息键
const (
	MsgReminderTitle = "reminder.title"
	MsgReminderBody  = "reminder.body"
)

var catalog = map[string]map[string]string{
	LanguageEnglish: {
		MsgReminderTitle: "Zolffix Habit Reminder",
		MsgReminderBody:  "It's time for: %s %s",
	},
	LanguageHindi: {
		MsgReminderTitle: "Zolffix आदत अनुस्मारक",
		MsgReminderBody:  "अब समय है: %s %s",
	},
	LanguageUrdu: {
		MsgReminderTitle: "Zolffix عادت کی یاد دہانی",
		MsgReminderBody:  "اب وقت ہے: %s %s",
	},
	LanguageTamil: {
		MsgReminderTitle: "Zolffix பழக்க நினைவூட்டல்",
		MsgReminderBody:  "இப்போது நேரம்: %s %s",
	},
}

// Text returns the message for key in language, falling back to English.
func Text(language, key string, args ...any) string {
	lang := NormalizeLanguage(language)
	if lang == "" {
		lang = LanguageEnglish
	}
	format, ok := catalog[lang][key]
	if !ok {
		format, ok = catalog[LanguageEnglish][key]
		if !ok {
			return key
		}
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
