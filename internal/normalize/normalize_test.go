package normalize

import "testing"

func mustParse(t *testing.T, names ...string) Set {
	t.Helper()
	set, err := Parse(names)
	if err != nil {
		t.Fatalf("Parse(%v): %v", names, err)
	}
	return set
}

func TestDecodeDepth(t *testing.T) {
	set := mustParse(t, "url_decode")
	if got := set.Apply("%252e%252e%252f"); got != "../" {
		t.Fatalf("expected full decode, got %q", got)
	}

	set.DecodeDepth = 1
	if got := set.Apply("%252e%252e%252f"); got != "%2e%2e%2f" {
		t.Fatalf("expected partial decode, got %q", got)
	}
}

func TestApplyOrderIsFixed(t *testing.T) {
	a := mustParse(t, "lowercase", "url_decode")
	b := mustParse(t, "url_decode", "lowercase")
	for _, set := range []Set{a, b} {
		if got := set.Apply("%3CScRipT%3E"); got != "<script>" {
			t.Fatalf("expected <script>, got %q", got)
		}
	}

	if got := mustParse(t, "html_entity").Apply("&lt;div&gt;"); got != "<div>" {
		t.Fatalf("expected html decode, got %q", got)
	}
	if got := mustParse(t, "collapse_space").Apply("union \t\n  select"); got != "union select" {
		t.Fatalf("expected collapsed space, got %q", got)
	}
	if got := mustParse(t, "normalize_path").Apply("/a/./b/../c"); got != "/a/c" {
		t.Fatalf("expected normalized path, got %q", got)
	}
}

func TestParse(t *testing.T) {
	if _, err := Parse([]string{"lowercase", "rot13"}); err == nil {
		t.Fatal("expected error for unknown transform")
	}

	set := mustParse(t, " lowercase ", "url_decode", "lowercase")
	names := set.Names()
	if len(names) != 2 || names[0] != "url_decode" || names[1] != "lowercase" {
		t.Fatalf("unexpected names %v", names)
	}
	if set.Empty() {
		t.Fatal("expected non-empty set")
	}
	if !mustParse(t).Empty() {
		t.Fatal("expected empty set")
	}
	if got := mustParse(t).Apply("As-Is"); got != "As-Is" {
		t.Fatalf("empty set changed input: %q", got)
	}
}

func TestPath(t *testing.T) {
	cases := map[string]string{
		"/a//b/./c":  "/a/b/c",
		"/a/b/../c":  "/a/c",
		"../a/../b":  "b",
		"/../a":      "/a",
		"/a/b/":      "/a/b/",
		"":           "",
		".":          "",
		"x/..":       "",
		"a/":         "a/",
		"/":          "/",
		"/..":        "/",
		"/a/../../b": "/b",
	}

	for input, expected := range cases {
		if got := Path(input); got != expected {
			t.Fatalf("Path(%q) expected %q, got %q", input, expected, got)
		}
	}
}
