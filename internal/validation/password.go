package validation

// Password rules:
// - Length 6..64.
// - At least one digit, one uppercase and one lowercase letter.
// - Allowed chars: alphanumerics plus !@#$%_
func PasswordValid(s string) bool {
	if len(s) < 6 || len(s) > 64 {
		return false
	}
	var hasUpper, hasLower, hasDigit bool
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			hasUpper = true
		case c >= 'a' && c <= 'z':
			hasLower = true
		case c >= '0' && c <= '9':
			hasDigit = true
		case c == '!' || c == '@' || c == '#' || c == '$' || c == '%' || c == '_':
			// allowed symbol
		default:
			return false
		}
	}
	return hasUpper && hasLower && hasDigit
}
