package ingredient

import "strings"

// Normalize maps raw detector output to corpus ingredient names. Tokens that
// resolve to nothing are dropped, duplicates keep their first occurrence, and
// an empty result is replaced with DefaultIngredients so downstream matching
// never sees an empty query.
func Normalize(detected []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, token := range detected {
		mapped, ok := Resolve(token)
		if !ok || seen[mapped] {
			continue
		}
		seen[mapped] = true
		out = append(out, mapped)
	}

	if len(out) == 0 {
		return append([]string(nil), DefaultIngredients...)
	}
	return out
}

// Resolve maps a single detected token to a vocabulary ingredient. The
// resolution stages run in a fixed order; the first stage that produces a
// vocabulary-valid name wins.
func Resolve(token string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(token))
	if t == "" {
		return "", false
	}

	// 1. Exact object-label table. Labels mapping to non-corpus names
	// (Banana, Beverage, ...) fall through to later stages.
	if mapped, ok := objectMappings[t]; ok {
		if InVocabulary(mapped) {
			return mapped, true
		}
	}

	// 2. The token is already a vocabulary name.
	for _, name := range Vocabulary {
		if t == strings.ToLower(name) {
			return name, true
		}
	}

	// 3. Stem patterns, first match wins.
	for _, rule := range fuzzyRules {
		if rule.pattern.MatchString(t) && InVocabulary(rule.ingredient) {
			return rule.ingredient, true
		}
	}

	// 4. Category keywords, first valid candidate wins.
	for _, rule := range keywordRules {
		if strings.Contains(t, rule.keyword) {
			for _, candidate := range rule.ingredients {
				if InVocabulary(candidate) {
					return candidate, true
				}
			}
		}
	}

	// 5. Substring match in either direction.
	for _, name := range Vocabulary {
		lower := strings.ToLower(name)
		if strings.Contains(t, lower) || strings.Contains(lower, t) {
			return name, true
		}
	}

	return "", false
}
