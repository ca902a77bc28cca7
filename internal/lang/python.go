package lang

import (
	"github.com/smacker/go-tree-sitter/python"
)

// Python is the only language with decorator-marked endpoints.
const Python = "python"

func init() {
	Languages[Python] = &Language{
		Name:          Python,
		Extensions:    []string{".py"},
		lang:          python.GetLanguage(),
		IgnoredParams: []string{"self", "cls", "kwargs"},
	}
}
