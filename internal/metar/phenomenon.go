package metar

// DecodePhenomenon expands a present-weather group into readable text.
//
// An optional leading intensity sign is read first, then the rest of the
// group is scanned two characters at a time against phenomenonRules. A slice
// that matches no rule is skipped one character at a time, so unknown codes
// leave gaps rather than aborting. If nothing matched, the code is echoed.
func DecodePhenomenon(code string) string {
	chars := []rune(code)
	result := ""
	i := 0

	if i < len(chars) && (chars[i] == '-' || chars[i] == '+') {
		result += intensityPrefixes[string(chars[i])]
		i++
	}

	for i < len(chars) {
		end := min(i+2, len(chars))
		if rule, ok := lookupRule(string(chars[i:end])); ok {
			result += rule.expansion
			i += 2
			continue
		}
		i++
	}

	if result == "" {
		return code
	}
	return result
}

// lookupRule returns the first rule for a two-letter code
func lookupRule(code string) (phenomenonRule, bool) {
	for _, rule := range phenomenonRules {
		if rule.code == code {
			return rule, true
		}
	}
	return phenomenonRule{}, false
}

// PhenomenonCategoryOf reports which table a two-letter code belongs to
func PhenomenonCategoryOf(code string) (PhenomenonCategory, bool) {
	rule, ok := lookupRule(code)
	return rule.category, ok
}
