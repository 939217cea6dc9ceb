package flows

import (
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	json "github.com/goccy/go-json"
)

// pyStr is Python's str() of a JSON value. Mapping keys are rendered in
// sorted order.
func pyStr(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return pyRepr(v, false)
}

func pyRepr(v any, ascii bool) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case bool:
		if t {
			return "True"
		}
		return "False"
	case string:
		return quotePy(t, ascii)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(quotePy(k, ascii))
			b.WriteString(": ")
			b.WriteString(pyRepr(t[k], ascii))
		}
		b.WriteByte('}')
		return b.String()
	case []any:
		var b strings.Builder
		b.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(pyRepr(e, ascii))
		}
		b.WriteByte(']')
		return b.String()
	}
	if n, ok := toNumber(v); ok {
		if n.isInt {
			return n.i.String()
		}
		return pyFloatRepr(n.f)
	}
	return fmt.Sprint(v)
}

func pyTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "NoneType"
	case bool:
		return "bool"
	case string:
		return "str"
	case map[string]any:
		return "dict"
	case []any:
		return "list"
	}
	if n, ok := toNumber(v); ok {
		if n.isInt {
			return "int"
		}
		return "float"
	}
	return fmt.Sprintf("%T", v)
}

// quotePy mirrors Python's repr of str: single quotes unless the text
// contains a single quote and no double quote.
func quotePy(s string, ascii bool) string {
	q := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		q = '"'
	}
	var b strings.Builder
	b.WriteByte(q)
	for _, r := range s {
		switch {
		case r == rune(q) || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\t':
			b.WriteString(`\t`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		case r < utf8.RuneSelf:
			b.WriteRune(r)
		case ascii || !unicode.IsPrint(r):
			switch {
			case r < 0x100:
				fmt.Fprintf(&b, `\x%02x`, r)
			case r < 0x10000:
				fmt.Fprintf(&b, `\u%04x`, r)
			default:
				fmt.Fprintf(&b, `\U%08x`, r)
			}
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(q)
	return b.String()
}

// pyFloatRepr is Python's repr of a float: shortest round-tripping digits,
// positional for exponents in [-4, 16), always with a fractional part.
func pyFloatRepr(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	mant, expStr, _ := strings.Cut(s, "e")
	exp, _ := strconv.Atoi(expStr)
	digits := strings.Replace(mant, ".", "", 1)
	if exp >= -4 && exp < 16 {
		var ip, fp string
		if exp >= 0 {
			if len(digits) <= exp+1 {
				ip, fp = digits+strings.Repeat("0", exp+1-len(digits)), "0"
			} else {
				ip, fp = digits[:exp+1], digits[exp+1:]
			}
		} else {
			ip, fp = "0", strings.Repeat("0", -exp-1)+digits
		}
		return sign + ip + "." + fp
	}
	m := digits[:1]
	if len(digits) > 1 {
		m += "." + digits[1:]
	}
	return sign + m + "e" + fmt.Sprintf("%+03d", exp)
}

type number struct {
	isInt bool
	i     *big.Int
	f     float64
}

func toNumber(v any) (number, bool) {
	switch t := v.(type) {
	case json.Number:
		s := string(t)
		if !strings.ContainsAny(s, ".eE") {
			if i, ok := new(big.Int).SetString(s, 10); ok {
				return number{isInt: true, i: i}, true
			}
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return number{}, false
		}
		return number{f: f}, true
	case float64:
		return number{f: t}, true
	case float32:
		return number{f: float64(t)}, true
	case int:
		return number{isInt: true, i: big.NewInt(int64(t))}, true
	case int8:
		return number{isInt: true, i: big.NewInt(int64(t))}, true
	case int16:
		return number{isInt: true, i: big.NewInt(int64(t))}, true
	case int32:
		return number{isInt: true, i: big.NewInt(int64(t))}, true
	case int64:
		return number{isInt: true, i: big.NewInt(t)}, true
	case uint:
		return number{isInt: true, i: new(big.Int).SetUint64(uint64(t))}, true
	case uint8:
		return number{isInt: true, i: new(big.Int).SetUint64(uint64(t))}, true
	case uint16:
		return number{isInt: true, i: new(big.Int).SetUint64(uint64(t))}, true
	case uint32:
		return number{isInt: true, i: new(big.Int).SetUint64(uint64(t))}, true
	case uint64:
		return number{isInt: true, i: new(big.Int).SetUint64(t)}, true
	}
	return number{}, false
}

// formatSpec is [[fill]align][sign][0][width][,|_][.precision][type].
type formatSpec struct {
	fill      rune
	align     byte
	sign      byte
	zero      bool
	width     int
	grouping  byte
	precision int
	typ       byte
}

func isAlign(c byte) bool { return c == '<' || c == '>' || c == '^' || c == '=' }

func parseSpec(s string) (formatSpec, error) {
	sp := formatSpec{precision: -1}
	bad := fmt.Errorf("invalid format specifier %q", s)
	i := 0
	if r, size := utf8.DecodeRuneInString(s); size > 0 && size < len(s) && isAlign(s[size]) {
		sp.fill, sp.align = r, s[size]
		i = size + 1
	} else if len(s) > 0 && isAlign(s[0]) {
		sp.align = s[0]
		i = 1
	}
	if i < len(s) && (s[i] == '+' || s[i] == '-' || s[i] == ' ') {
		sp.sign = s[i]
		i++
	}
	if i < len(s) && s[i] == '0' {
		sp.zero = true
		i++
	}
	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > start {
		sp.width, _ = strconv.Atoi(s[start:i])
	}
	if i < len(s) && (s[i] == ',' || s[i] == '_') {
		sp.grouping = s[i]
		i++
	}
	if i < len(s) && s[i] == '.' {
		i++
		start = i
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i == start {
			return sp, fmt.Errorf("format specifier %q is missing precision", s)
		}
		sp.precision, _ = strconv.Atoi(s[start:i])
	}
	if i < len(s) {
		sp.typ = s[i]
		i++
	}
	if i != len(s) {
		return sp, bad
	}
	return sp, nil
}

// formatValue is Python's format(value, spec) for JSON values.
func formatValue(v any, spec string) (string, error) {
	if spec == "" {
		return pyStr(v), nil
	}
	sp, err := parseSpec(spec)
	if err != nil {
		return "", err
	}
	switch t := v.(type) {
	case string:
		return formatString(t, sp)
	case bool:
		n := int64(0)
		if t {
			n = 1
		}
		return formatNumber(number{isInt: true, i: big.NewInt(n)}, sp)
	}
	if n, ok := toNumber(v); ok {
		return formatNumber(n, sp)
	}
	return "", fmt.Errorf("unsupported format string passed to %s.__format__", pyTypeName(v))
}

func formatString(s string, sp formatSpec) (string, error) {
	if sp.typ != 0 && sp.typ != 's' {
		return "", fmt.Errorf("unknown format code '%c' for object of type 'str'", sp.typ)
	}
	if sp.sign != 0 {
		return "", fmt.Errorf("sign not allowed in string format specifier")
	}
	if sp.grouping != 0 {
		return "", fmt.Errorf("cannot specify '%c' with 's'", sp.grouping)
	}
	if sp.align == '=' {
		return "", fmt.Errorf("'=' alignment not allowed in string format specifier")
	}
	if sp.precision >= 0 && utf8.RuneCountInString(s) > sp.precision {
		s = string([]rune(s)[:sp.precision])
	}
	if sp.zero && sp.fill == 0 {
		sp.fill = '0'
	}
	return pad("", s, sp, '<'), nil
}

func formatNumber(n number, sp formatSpec) (string, error) {
	typ := sp.typ
	if n.isInt {
		switch typ {
		case 0, 'd':
			if sp.precision >= 0 {
				return "", fmt.Errorf("precision not allowed in integer format specifier")
			}
			sign, body := signOf(n.i.Sign() < 0, sp.sign), new(big.Int).Abs(n.i).String()
			return pad(sign, group(body, sp.grouping), sp, '>'), nil
		case 'e', 'E', 'f', 'F', 'g', 'G', '%':
			f, _ := new(big.Float).SetInt(n.i).Float64()
			n = number{f: f}
		default:
			return "", fmt.Errorf("unknown format code '%c' for object of type 'int'", typ)
		}
	}

	f := n.f
	neg := math.Signbit(f) && !math.IsNaN(f)
	a := math.Abs(f)
	prec := sp.precision
	var body string
	switch typ {
	case 0:
		if prec < 0 {
			body = pyFloatRepr(a)
		} else {
			body = strconv.FormatFloat(a, 'g', max(prec, 1), 64)
			if !strings.ContainsAny(body, ".eEn") {
				body += ".0"
			}
		}
	case 'f', 'F':
		body = strconv.FormatFloat(a, 'f', defPrec(prec), 64)
	case 'e', 'E':
		body = strconv.FormatFloat(a, 'e', defPrec(prec), 64)
	case 'g', 'G':
		body = strconv.FormatFloat(a, 'g', max(defPrec(prec), 1), 64)
	case '%':
		body = strconv.FormatFloat(a*100, 'f', defPrec(prec), 64) + "%"
	default:
		return "", fmt.Errorf("unknown format code '%c' for object of type 'float'", typ)
	}
	switch {
	case math.IsInf(a, 1):
		body = "inf"
	case math.IsNaN(a):
		body = "nan"
	}
	if typ == 'E' || typ == 'F' || typ == 'G' {
		body = strings.ToUpper(body)
	}
	if sp.grouping != 0 {
		ip, rest := body, ""
		if k := strings.IndexAny(body, ".eE%"); k >= 0 {
			ip, rest = body[:k], body[k:]
		}
		body = group(ip, sp.grouping) + rest
	}
	return pad(signOf(neg, sp.sign), body, sp, '>'), nil
}

func defPrec(p int) int {
	if p < 0 {
		return 6
	}
	return p
}

func signOf(neg bool, flag byte) string {
	switch {
	case neg:
		return "-"
	case flag == '+':
		return "+"
	case flag == ' ':
		return " "
	}
	return ""
}

func group(digits string, sep byte) string {
	if sep == 0 || len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// pad applies fill, alignment and width. A zero flag without explicit
// alignment pads with zeros after the sign.
func pad(sign, body string, sp formatSpec, defAlign byte) string {
	fill, align := sp.fill, sp.align
	if sp.zero && align == 0 && defAlign == '>' {
		if fill == 0 {
			fill = '0'
		}
		align = '='
	}
	if fill == 0 {
		fill = ' '
	}
	if align == 0 {
		align = defAlign
	}
	n := sp.width - utf8.RuneCountInString(sign) - utf8.RuneCountInString(body)
	if n <= 0 {
		return sign + body
	}
	fills := strings.Repeat(string(fill), n)
	switch align {
	case '<':
		return sign + body + fills
	case '^':
		left := strings.Repeat(string(fill), n/2)
		return left + sign + body + strings.Repeat(string(fill), n-n/2)
	case '=':
		return sign + fills + body
	default:
		return fills + sign + body
	}
}
