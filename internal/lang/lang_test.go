package lang

import (
	"slices"
	"testing"
)

func TestForExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ext  string
		want string
	}{
		{".py", "python"},
		{".go", ""},
		{".rb", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			t.Parallel()
			got := ForExtension(tt.ext)
			if got != tt.want {
				t.Errorf("ForExtension(%q) = %q, want %q", tt.ext, got, tt.want)
			}
		})
	}
}

func TestLanguagesRegistered(t *testing.T) {
	t.Parallel()

	py, ok := Languages[Python]
	if !ok {
		t.Fatal("python language not registered")
	}
	if py.lang == nil {
		t.Error("python language is nil")
	}
	for _, name := range []string{"self", "cls", "kwargs"} {
		if !slices.Contains(py.IgnoredParams, name) {
			t.Errorf("python ignored params missing %q", name)
		}
	}
}

func TestNewParser(t *testing.T) {
	t.Parallel()

	py := Languages[Python]
	p := py.NewParser()
	if p == nil {
		t.Fatal("NewParser returned nil")
	}
}

func TestGetEndpointQuery(t *testing.T) {
	t.Parallel()

	py := Languages[Python]
	q, err := py.GetEndpointQuery()
	if err != nil {
		t.Fatalf("GetEndpointQuery: %v", err)
	}
	if q == nil {
		t.Fatal("query is nil")
	}
}

func TestCollapseWhitespace(t *testing.T) {
	t.Parallel()

	got := CollapseWhitespace("  dict[\n    str,  int]\t")
	if got != "dict[ str, int]" {
		t.Errorf("CollapseWhitespace = %q", got)
	}
}
