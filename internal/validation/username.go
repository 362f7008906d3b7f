package validation

import "regexp"

// Username rules:
// - Length 4..16.
// - Chars: A-Z a-z 0-9 plus "." and "_".
// - "_" may not start or end the name and may not appear twice in a row.
//
// Examples valid: Johny, jo.hn, a_b_c4, user.name_1
// Examples invalid: _Joh, Joh_, Jo__hn, abc, 17+ chars, "jo hn", "jo-hn".
var usernameCharsRe = regexp.MustCompile(`^[a-zA-Z0-9._]+$`)

// UsernameValid reports whether the username satisfies the format rules.
// Pure predicate, the single source of truth for every registration path.
func UsernameValid(s string) bool {
	if len(s) < 4 || len(s) > 16 {
		return false
	}
	if !usernameCharsRe.MatchString(s) {
		return false
	}
	if s[0] == '_' || s[len(s)-1] == '_' {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] == '_' && s[i-1] == '_' {
			return false
		}
	}
	return true
}
