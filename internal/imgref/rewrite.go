// Package imgref locates embedded image references in rich-text bodies and
// rewrites their alt attribute in place.
//
// Matching is a targeted scan rather than a full markup parse: only <img>
// start tags and a single attribute are ever touched, and every byte outside
// a rewritten fragment is preserved exactly.
package imgref

import (
	"html"
	"regexp"
	"strings"

	"github.com/listenupapp/bulkmeta/internal/content"
)

// Strategy records which match rule located a reference.
type Strategy int

// Match strategies in precedence order.
const (
	ByClass Strategy = iota + 1
	ByURL
)

func (s Strategy) String() string {
	switch s {
	case ByClass:
		return "class"
	case ByURL:
		return "url"
	}
	return "unknown"
}

// Reference is one located <img> fragment.
type Reference struct {
	Start    int
	End      int
	Text     string
	Strategy Strategy
}

// Result is the outcome of a rewrite pass over one body.
type Result struct {
	Body    string
	Count   int
	Changed bool
}

var (
	imgOpen   = regexp.MustCompile(`(?i)<img\b`)
	openToken = regexp.MustCompile(`(?i)^<img`)
)

// attr is one parsed attribute inside a tag fragment, with offsets relative
// to the fragment.
type attr struct {
	name       string
	value      string
	quote      byte
	hasValue   bool
	valueStart int
	valueEnd   int
	end        int
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// scanTag walks the start tag that opens at s[0] ("<img") the way an HTML
// tokenizer does: a name may directly follow a closing quote, and a quote
// only delimits a value right after '='. It returns the offset just past
// the closing '>' and the attributes, or -1 when the tag is unterminated.
func scanTag(s string) (int, []attr) {
	var attrs []attr
	i := len("<img")
	for i < len(s) {
		c := s[i]
		switch {
		case c == '>':
			return i + 1, attrs
		case isSpace(c) || c == '/':
			i++
			continue
		}

		nameStart := i
		i++
		for i < len(s) && !isSpace(s[i]) && s[i] != '/' && s[i] != '=' && s[i] != '>' {
			i++
		}
		a := attr{name: strings.ToLower(s[nameStart:i]), end: i}

		j := i
		for j < len(s) && isSpace(s[j]) {
			j++
		}
		if j < len(s) && s[j] == '=' {
			j++
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			switch {
			case j >= len(s):
				return -1, nil
			case s[j] == '"' || s[j] == '\'':
				q := s[j]
				closing := strings.IndexByte(s[j+1:], q)
				if closing < 0 {
					return -1, nil
				}
				a.quote = q
				a.valueStart, a.valueEnd = j+1, j+1+closing
				i = a.valueEnd + 1
			default:
				k := j
				for k < len(s) && !isSpace(s[k]) && s[k] != '>' {
					k++
				}
				a.valueStart, a.valueEnd = j, k
				i = k
			}
			a.hasValue = true
			a.value = s[a.valueStart:a.valueEnd]
		}
		attrs = append(attrs, a)
	}
	return -1, nil
}

func parseAttrs(tag string) []attr {
	_, attrs := scanTag(tag)
	return attrs
}

// imgTags returns the [start, end) offsets of every <img> start tag in body.
func imgTags(body string) [][2]int {
	var out [][2]int
	for pos := 0; pos < len(body); {
		loc := imgOpen.FindStringIndex(body[pos:])
		if loc == nil {
			break
		}
		start := pos + loc[0]
		n, _ := scanTag(body[start:])
		if n < 0 {
			pos = start + loc[1] - loc[0]
			continue
		}
		out = append(out, [2]int{start, start + n})
		pos = start + n
	}
	return out
}

func findAttr(attrs []attr, name string) (attr, bool) {
	for _, a := range attrs {
		if a.name == name {
			return a, true
		}
	}
	return attr{}, false
}

func hasClassToken(tag, token string) bool {
	a, ok := findAttr(parseAttrs(tag), "class")
	if !ok || !a.hasValue {
		return false
	}
	for _, f := range strings.Fields(html.UnescapeString(a.value)) {
		if strings.EqualFold(f, token) {
			return true
		}
	}
	return false
}

// srcContains reports whether a src-bearing attribute (src, or a lazy-load
// variant such as data-src) contains url.
func srcContains(tag, url string) bool {
	if url == "" {
		return false
	}
	for _, a := range parseAttrs(tag) {
		if !a.hasValue || (a.name != "src" && !strings.HasSuffix(a.name, "-src")) {
			continue
		}
		if strings.Contains(a.value, url) || strings.Contains(html.UnescapeString(a.value), url) {
			return true
		}
	}
	return false
}

// Find returns every <img> fragment in body that references the attachment,
// in document order. Class-token matches take precedence: a fragment that
// carries the token is reported once, as ByClass, even if its src also
// contains url.
func Find(body string, id content.ID, url string) []Reference {
	token := content.ClassToken(id)
	var refs []Reference
	for _, loc := range imgTags(body) {
		tag := body[loc[0]:loc[1]]
		switch {
		case hasClassToken(tag, token):
			refs = append(refs, Reference{Start: loc[0], End: loc[1], Text: tag, Strategy: ByClass})
		case srcContains(tag, url):
			refs = append(refs, Reference{Start: loc[0], End: loc[1], Text: tag, Strategy: ByURL})
		}
	}
	return refs
}

// EscapeAttr escapes a value for use inside a quoted attribute.
func EscapeAttr(s string) string {
	return html.EscapeString(s)
}

// SetAlt returns tag with its alt attribute set to alt. An existing value is
// replaced in place keeping its quote style; otherwise the attribute is
// inserted right after the "<img" token.
func SetAlt(tag, alt string) string {
	escaped := EscapeAttr(alt)
	if a, ok := findAttr(parseAttrs(tag), "alt"); ok {
		if !a.hasValue {
			return tag[:a.end] + `="` + escaped + `"` + tag[a.end:]
		}
		if a.quote == 0 {
			return tag[:a.valueStart] + `"` + escaped + `"` + tag[a.valueEnd:]
		}
		return tag[:a.valueStart] + escaped + tag[a.valueEnd:]
	}
	loc := openToken.FindStringIndex(tag)
	if loc == nil {
		return tag
	}
	return tag[:loc[1]] + ` alt="` + escaped + `"` + tag[loc[1]:]
}

// Rewrite sets the alt text of every reference to the attachment in body.
// Fragments whose text does not change are not counted. When nothing
// changes the input body is returned as is.
func Rewrite(body string, id content.ID, url, alt string) Result {
	refs := Find(body, id, url)
	if len(refs) == 0 {
		return Result{Body: body}
	}

	var b strings.Builder
	b.Grow(len(body) + len(refs)*(len(alt)+8))

	count := 0
	last := 0
	for _, ref := range refs {
		rewritten := SetAlt(ref.Text, alt)
		if rewritten == ref.Text {
			continue
		}
		b.WriteString(body[last:ref.Start])
		b.WriteString(rewritten)
		last = ref.End
		count++
	}
	if count == 0 {
		return Result{Body: body}
	}
	b.WriteString(body[last:])

	return Result{Body: b.String(), Count: count, Changed: true}
}
