package parse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/rpcaudit/internal/lang"
)

func parseString(t *testing.T, source string) error {
	t.Helper()
	p := lang.Languages[lang.Python].NewParser()
	defer p.Close()
	tree, err := Source(context.Background(), p, []byte(source))
	if tree != nil {
		defer tree.Close()
	}
	return err
}

func TestSourceValid(t *testing.T) {
	t.Parallel()

	err := parseString(t, `@mathesar_rpc_method(name="tables.get")
def get(*, table_oid: int, database_id: int, **kwargs) -> dict:
    """Get a table."""
    return {}
`)
	require.NoError(t, err)
}

func TestSourceEmpty(t *testing.T) {
	t.Parallel()

	require.NoError(t, parseString(t, ""))
}

func TestSourceSyntaxError(t *testing.T) {
	t.Parallel()

	err := parseString(t, "def ok():\n    pass\n\ndef broken(:\n    pass\n")
	require.Error(t, err)

	var perr *Error
	require.True(t, errors.As(err, &perr), "want *Error, got %T", err)
	assert.GreaterOrEqual(t, perr.Line, 4)
	assert.Contains(t, perr.Error(), "syntax error at line")
}

func TestSourceUnclosedParen(t *testing.T) {
	t.Parallel()

	err := parseString(t, "x = foo(1, 2\n")
	var perr *Error
	require.True(t, errors.As(err, &perr), "want *Error, got %v", err)
	assert.Positive(t, perr.Column)
}
