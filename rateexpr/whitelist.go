package rateexpr

import "fmt"

var keywords = map[string]bool{
	"and": true, "or": true, "not": true, "true": true, "false": true,
}

// scanWhitelist rejects any identifier- or call-like token in source that
// is not a whitelisted function name, the reserved "t", or a member of
// allowedIdentifiers (the net's P<id> and display-name identifiers). It
// runs ahead of expr-lang's own parser so the grammar can never reach a
// name or function outside spec.md 4.2's documented set.
func scanWhitelist(source string, allowedIdentifiers map[string]bool) error {
	funcs := functionNames()
	runes := []rune(source)
	i := 0
	for i < len(runes) {
		c := runes[i]
		switch {
		case isDigit(c):
			i = skipNumber(runes, i)
		case isIdentStart(c):
			start := i
			i++
			for i < len(runes) && isIdentPart(runes[i]) {
				i++
			}
			name := string(runes[start:i])
			if keywords[name] {
				continue
			}
			j := i
			for j < len(runes) && (runes[j] == ' ' || runes[j] == '\t') {
				j++
			}
			if j < len(runes) && runes[j] == '(' {
				if !funcs[name] {
					return fmt.Errorf("%w: function %q is not in the whitelisted grammar", ErrParse, name)
				}
				continue
			}
			if name == "t" {
				continue
			}
			if !allowedIdentifiers[name] {
				return fmt.Errorf("%w: identifier %q is not a known place or \"t\"", ErrName, name)
			}
		default:
			i++
		}
	}
	return nil
}

func skipNumber(runes []rune, i int) int {
	for i < len(runes) && (isDigit(runes[i]) || runes[i] == '.') {
		i++
	}
	if i < len(runes) && (runes[i] == 'e' || runes[i] == 'E') {
		save := i
		i++
		if i < len(runes) && (runes[i] == '+' || runes[i] == '-') {
			i++
		}
		if i < len(runes) && isDigit(runes[i]) {
			for i < len(runes) && isDigit(runes[i]) {
				i++
			}
		} else {
			i = save
		}
	}
	return i
}

func isDigit(c rune) bool { return c >= '0' && c <= '9' }

func isIdentStart(c rune) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c rune) bool {
	return isIdentStart(c) || isDigit(c)
}
