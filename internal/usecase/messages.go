package usecase

// Localized fixed answers for the terminal non-success paths. These are
// answers, not errors: the caller receives a normal response with an
// empty citation list.
const (
	noEvidenceAnswerJA = "該当する情報が見つかりませんでした。対象ドキュメントの指定を変えるか、質問の表現を変えてお試しください。"
	noEvidenceAnswerEN = "No relevant information was found. Try scoping the request to different documents or rephrasing the question."

	serviceBusyAnswerJA = "現在アクセスが集中しています。しばらく待ってから再度お試しください。"
	serviceBusyAnswerEN = "The service is currently busy. Please wait a moment and try again."

	configErrorAnswerJA = "サービスの設定に問題があります。管理者にお問い合わせください。"
	configErrorAnswerEN = "The service is misconfigured. Please contact an administrator."
)

// NoEvidenceAnswer returns the fixed "nothing found" answer for locale.
func NoEvidenceAnswer(locale string) string {
	if isJapanese(locale) {
		return noEvidenceAnswerJA
	}
	return noEvidenceAnswerEN
}

// ServiceBusyAnswer returns the fixed throttled-out answer for locale.
func ServiceBusyAnswer(locale string) string {
	if isJapanese(locale) {
		return serviceBusyAnswerJA
	}
	return serviceBusyAnswerEN
}

// ConfigErrorAnswer returns the fixed misconfiguration answer for locale.
func ConfigErrorAnswer(locale string) string {
	if isJapanese(locale) {
		return configErrorAnswerJA
	}
	return configErrorAnswerEN
}

func referencesHeading(locale string) string {
	if isJapanese(locale) {
		return "### 参照資料"
	}
	return "### References"
}

func isJapanese(locale string) bool {
	return locale == "ja" || len(locale) >= 3 && locale[:3] == "ja-"
}
