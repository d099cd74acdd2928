// redact маскирует чувствительные значения перед записью в логи.
package redact

import "strings"

// Email оставляет первые две руны локальной части и домен целиком.
// Для строк без ровно одного '@' возвращает "***".
func Email(s string) string {
	local, domain, ok := strings.Cut(s, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***"
	}

	r := []rune(local)
	if len(r) > 2 {
		return string(r[:2]) + "***@" + domain
	}

	return "***@" + domain
}

// Username маскирует имя пользователя по тому же правилу, что и локальную часть e-mail.
func Username(s string) string {
	r := []rune(s)
	if len(r) > 2 {
		return string(r[:2]) + "***"
	}

	return "***"
}

func Token() string    { return "[REDACTED_TOKEN]" }
func Password() string { return "[REDACTED_PASSWORD]" }
