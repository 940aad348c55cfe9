package llm

import "fmt"

// buildPrompt строит единый текстовый промпт для всех провайдеров: запрашивает
// count вопросов по теме topic в формате JSON-массива объектов с полями
// соответствующими entity.Question. Держать промпт вне провайдер-специфичного кода
// позволяет переиспользовать один и тот же контракт у openai/anthropic/gemini.
func buildPrompt(req Request) string {
	return fmt.Sprintf(
		`Generate %d %s trivia questions about %q at %s difficulty%s.
Respond with a JSON array only, no prose. Each element must have fields:
id (integer, 0-based), text (string), type (one of "multiple_choice","true_false","short_answer"),
options (array of strings, only for multiple_choice), answer (string, the correct option text
or letter A-D for multiple_choice, "true"/"false" for true_false, or free text for short_answer),
explanation (string, optional), difficulty (string), category (string).
If you cannot confidently produce the answer for a question, set answer to "__unparsed__".`,
		req.Count, req.Type, req.Topic, req.Difficulty, categorySuffix(req.Category))
}

func categorySuffix(category string) string {
	if category == "" {
		return ""
	}
	return fmt.Sprintf(" in the category %q", category)
}
