package crawler

import "testing"

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		href string
		base string
		want string
	}{
		{"absolute path", "/x", "https://h/a/b", "https://h/x"},
		{"relative path", "x", "https://h/a/b", "https://h/a/x"},
		{"absolute URL is kept", "https://other/y", "https://h/a/b", "https://other/y"},
		{"absolute URL with bad base", "https://other/y", "::not a url", "https://other/y"},
		{"scheme relative", "//cdn.example/lib.js", "https://h/a", "https://cdn.example/lib.js"},
		{"query only", "?page=2", "https://h/list?page=1", "https://h/list?page=2"},
		{"fragment only", "#top", "https://h/a/b", "https://h/a/b#top"},
		{"dot segments", "../c", "https://h/a/b/d", "https://h/a/c"},
		{"empty href is the base", "", "https://h/a/b", "https://h/a/b"},
		{"mailto is absolute", "mailto:a@b.c", "https://h/", "mailto:a@b.c"},
		{"relative base returns href", "x", "/a/b", "x"},
		{"unparsable base returns href", "x", "http://[::1", "x"},
		{"unparsable href returns href", "http://[::1", "https://h/", "http://[::1"},
		{"leading space is trimmed", " /x", "https://h/a/b", "https://h/x"},
		{"trailing space is trimmed", "/x ", "https://h/a/b", "https://h/x"},
		{"surrounding newlines and indentation", "\n  /x\n", "https://h/a/b", "https://h/x"},
		{"leading tab", "\t/x", "https://h/a/b", "https://h/x"},
		{"newline inside path is removed", "/do\ncs/x", "https://h/a/b", "https://h/docs/x"},
		{"inner space is encoded", "/a b", "https://h/", "https://h/a%20b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Resolve(tt.href, tt.base); got != tt.want {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tt.href, tt.base, got, tt.want)
			}
		})
	}
}
