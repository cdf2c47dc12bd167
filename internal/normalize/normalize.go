// Package normalize rewrites scan input before rules match against it.
package normalize

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"unicode"
)

type Transform string

const (
	URLDecode     Transform = "url_decode"
	PathNormalize Transform = "normalize_path"
	HTMLEntity    Transform = "html_entity"
	CollapseSpace Transform = "collapse_space"
	Lowercase     Transform = "lowercase"
)

const DefaultDecodeDepth = 2

// order is the fixed application order, independent of how a rule lists them.
var order = []Transform{URLDecode, PathNormalize, HTMLEntity, CollapseSpace, Lowercase}

// Set is a parsed list of transforms.
type Set struct {
	enabled     map[Transform]bool
	DecodeDepth int
}

// Parse validates transform names. Duplicates are allowed and ignored.
func Parse(raw []string) (Set, error) {
	set := Set{enabled: make(map[Transform]bool, len(raw)), DecodeDepth: DefaultDecodeDepth}
	for _, item := range raw {
		t := Transform(strings.TrimSpace(item))
		switch t {
		case URLDecode, PathNormalize, HTMLEntity, CollapseSpace, Lowercase:
			set.enabled[t] = true
		default:
			return Set{}, fmt.Errorf("unknown transform %q", item)
		}
	}
	return set, nil
}

// Empty reports whether the set leaves input untouched.
func (s Set) Empty() bool {
	return len(s.enabled) == 0
}

func (s Set) Has(t Transform) bool {
	return s.enabled[t]
}

// Names lists the enabled transforms in application order.
func (s Set) Names() []string {
	var out []string
	for _, t := range order {
		if s.enabled[t] {
			out = append(out, string(t))
		}
	}
	return out
}

// Apply runs the enabled transforms over input.
func (s Set) Apply(input string) string {
	out := input
	for _, t := range order {
		if !s.enabled[t] {
			continue
		}
		switch t {
		case URLDecode:
			out = decode(out, s.DecodeDepth)
		case PathNormalize:
			out = Path(out)
		case HTMLEntity:
			out = html.UnescapeString(out)
		case CollapseSpace:
			out = collapseSpace(out)
		case Lowercase:
			out = strings.ToLower(out)
		}
	}
	return out
}

func decode(input string, depth int) string {
	if depth <= 0 {
		depth = DefaultDecodeDepth
	}
	for i := 0; i < depth; i++ {
		next, err := url.PathUnescape(input)
		if err != nil || next == input {
			break
		}
		input = next
	}
	return input
}

func collapseSpace(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	space := false
	for _, r := range input {
		if unicode.IsSpace(r) {
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// Path collapses "." and ".." segments and repeated slashes. Leading and
// trailing slashes are kept only when the input had them, so the result never
// contains a slash the input lacked.
func Path(p string) string {
	if p == "" {
		return p
	}

	leading := strings.HasPrefix(p, "/")
	trailing := strings.HasSuffix(p, "/") && p != "/"

	stack := make([]string, 0, strings.Count(p, "/")+1)
	for _, part := range strings.Split(p, "/") {
		switch part {
		case "", ".":
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, part)
		}
	}

	out := strings.Join(stack, "/")
	if leading {
		out = "/" + out
	}
	if trailing && out != "" && out != "/" {
		out += "/"
	}
	return out
}
