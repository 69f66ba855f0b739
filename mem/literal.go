package mem

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ImmediatePrefix starts an immediate operand such as "~int:12".
const ImmediatePrefix = '~'

var (
	intLiteral   = regexp.MustCompile(`^[+-]?(0[xX][0-9a-fA-F]+|0[oO][0-7]+|0[bB][01]+|[0-9]+)[lL]?$`)
	floatLiteral = regexp.MustCompile(`^[+-]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][+-]?[0-9]+)?[dDfF]?$`)
)

// LiteralError reports immediate text that cannot be decoded.
type LiteralError struct {
	Text   string
	Reason string
}

func (err *LiteralError) Error() string {
	return fmt.Sprintf("invalid immediate value %q: %v", err.Text, err.Reason)
}

// SplitImmediate separates "~type:value" (or "#type:value") into its type name
// and value text.
func SplitImmediate(text string) (typeName, value string, err error) {
	body := text
	if len(body) > 0 && (body[0] == ImmediatePrefix || body[0] == '#') {
		body = body[1:]
	}
	i := strings.IndexByte(body, ':')
	if i < 0 {
		return "", "", &LiteralError{text, "missing type separator"}
	}
	return body[:i], body[i+1:], nil
}

// DecodeImmediate decodes one immediate operand into a new scalar container.
func DecodeImmediate(text string) (*Container, error) {
	typeName, value, err := SplitImmediate(text)
	if err != nil {
		return nil, err
	}
	t, ok := ParseDataType(typeName)
	if !ok {
		return nil, &LiteralError{text, fmt.Sprintf("unknown type %q", typeName)}
	}
	switch t {
	case Int64:
		n, err := ParseInt(value)
		if err != nil {
			return nil, &LiteralError{text, err.Error()}
		}
		return Int64Scalar(n), nil
	case Float64:
		f, err := ParseFloat(value)
		if err != nil {
			return nil, &LiteralError{text, err.Error()}
		}
		return Float64Scalar(f), nil
	case Bool:
		switch value {
		case "true":
			return BoolScalar(true), nil
		case "false":
			return BoolScalar(false), nil
		}
		return nil, &LiteralError{text, "not a boolean literal"}
	case String:
		s, err := ParseString(value)
		if err != nil {
			return nil, &LiteralError{text, err.Error()}
		}
		return StringScalar(s), nil
	}
	return nil, &LiteralError{text, fmt.Sprintf("%v has no literal form", t)}
}

// ParseInt decodes an integer literal: decimal, or 0x/0o/0b prefixed, with an
// optional sign and l/L suffix.
func ParseInt(s string) (int64, error) {
	if !intLiteral.MatchString(s) {
		return 0, fmt.Errorf("not an integer literal")
	}
	s = strings.TrimRight(s, "lL")
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	base := 10
	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			base, s = 16, s[2:]
		case 'o', 'O':
			base, s = 8, s[2:]
		case 'b', 'B':
			base, s = 2, s[2:]
		}
	}
	u, err := strconv.ParseUint(s, base, 64)
	switch {
	case errors.Is(err, strconv.ErrRange):
		return 0, errIntRange
	case err != nil:
		return 0, err
	case neg && u > 1<<63:
		return 0, errIntRange
	case neg:
		return int64(-u), nil
	case u > math.MaxInt64:
		return 0, errIntRange
	}
	return int64(u), nil
}

var errIntRange = errors.New("integer literal out of range")

// ParseFloat decodes a float literal with an optional exponent and d/f
// suffix.
func ParseFloat(s string) (float64, error) {
	if !floatLiteral.MatchString(s) {
		return 0, fmt.Errorf("not a float literal")
	}
	return strconv.ParseFloat(strings.TrimRight(s, "dDfF"), 64)
}

// ParseString strips the quotes of a string literal and decodes its escape
// sequences.
func ParseString(s string) (string, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return "", fmt.Errorf("not a quoted string")
	}
	s = s[1 : len(s)-1]
	if strings.IndexByte(s, '\\') < 0 {
		return s, nil
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			sb.WriteByte(s[i])
			continue
		}
		if i++; i >= len(s) {
			return "", fmt.Errorf("dangling escape")
		}
		switch s[i] {
		case 't':
			sb.WriteByte('\t')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case '"':
			sb.WriteByte('"')
		case '\\':
			sb.WriteByte('\\')
		default:
			return "", fmt.Errorf("unknown escape \\%c", s[i])
		}
	}
	return sb.String(), nil
}

// QuoteString is the inverse of ParseString.
func QuoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\t':
			sb.WriteString(`\t`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
