package audit

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/phobologic/rpcaudit/internal/discover"
	"github.com/phobologic/rpcaudit/internal/model"
	"github.com/phobologic/rpcaudit/internal/parse"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const tablesPy = `from mathesar.rpc.decorators import mathesar_rpc_method


@mathesar_rpc_method(name="tables.get", auth="login")
def get(*, schema_id: int, table_id: int, **kwargs) -> dict:
    """
    Get a table.

    Args:
        schema_id: The schema containing the table.
    """
    return {}


def helper(x):
    return x
`

const schemasPy = `from mathesar.rpc.decorators import mathesar_rpc_method


@mathesar_rpc_method(name="schemas.list")
def list_(*, database_id: int, **kwargs) -> list:
    """
    List schemas.

    Args:
        database_id: The database.

    Returns:
        A list of schemas.
    """
    return []


@mathesar_rpc_method(name="schemas.delete")
def delete(*, schema_oid: int, **kwargs) -> None:
    return None
`

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func options(t *testing.T, root string) Options {
	return Options{
		Root:       root,
		Marker:     "mathesar_rpc_method",
		Extensions: []string{".py"},
		Workers:    4,
		Logger:     zaptest.NewLogger(t),
	}
}

func TestFileScenario(t *testing.T) {
	t.Parallel()

	a, err := NewAuditor("mathesar_rpc_method", nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	r := a.File(context.Background(), model.SourceFile{Path: "tables.py", Source: []byte(tablesPy)})
	require.False(t, r.Failed())
	assert.Equal(t, 1, r.EndpointsChecked)
	require.Len(t, r.Issues, 2)

	assert.Equal(t, model.UndocumentedParams, r.Issues[0].Kind)
	assert.Equal(t, model.High, r.Issues[0].Severity)
	assert.Equal(t, []string{"table_id"}, r.Issues[0].Params)

	assert.Equal(t, model.MissingReturnsDocs, r.Issues[1].Kind)
	assert.Equal(t, model.Medium, r.Issues[1].Severity)
	assert.Equal(t, "dict", r.Issues[1].ReturnType)
	assert.Equal(t, 5, r.Issues[1].Line)
}

func TestFileKwargsNeverDeclared(t *testing.T) {
	t.Parallel()

	src := []byte(`@mathesar_rpc_method
def named(table_oid, kwargs=None, request=None):
    """
    Args:
        table_oid: The table.
        request: The request.
    """
`)
	for _, ignore := range [][]string{nil, {"request"}} {
		a, err := NewAuditor("mathesar_rpc_method", ignore, nil)
		require.NoError(t, err)

		r := a.File(context.Background(), model.SourceFile{Path: "named.py", Source: src})
		require.False(t, r.Failed())
		require.Equal(t, 1, r.EndpointsChecked)
		for _, is := range r.Issues {
			assert.NotContains(t, is.Params, "kwargs", "ignore list %v", ignore)
		}
	}
}

func TestFileParseError(t *testing.T) {
	t.Parallel()

	a, err := NewAuditor("mathesar_rpc_method", nil, nil)
	require.NoError(t, err)

	r := a.File(context.Background(), model.SourceFile{Path: "bad.py", Source: []byte("def broken(:\n")})
	require.True(t, r.Failed())
	assert.Zero(t, r.EndpointsChecked)
	assert.Empty(t, r.Issues)

	var perr *parse.Error
	assert.True(t, errors.As(r.Err, &perr))
}

func TestRun(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "tables.py", tablesPy)
	writeFile(t, root, "schemas.py", schemasPy)
	writeFile(t, root, "broken.py", "def broken(:\n")
	writeFile(t, root, "_private.py", tablesPy)
	writeFile(t, root, "columns/metadata.py", "x = 1\n")

	report, err := Run(context.Background(), options(t, root))
	require.NoError(t, err)

	var got []string
	for _, r := range report.Results {
		got = append(got, r.Path)
	}
	assert.Equal(t, []string{"broken.py", filepath.Join("columns", "metadata.py"), "schemas.py", "tables.py"}, got)

	assert.True(t, report.Results[0].Failed())
	assert.Empty(t, report.Results[2].Issues, "schemas.py should be clean")
	assert.Len(t, report.Results[3].Issues, 2)

	assert.Equal(t, model.RunSummary{
		FilesScanned:     4,
		EndpointsChecked: 3,
		FilesWithIssues:  1,
		FilesWithErrors:  1,
		TotalIssues:      2,
	}, report.Summary)
	assert.Equal(t, "mathesar_rpc_method", report.Marker)
}

func TestRunDeterministicOrder(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for i := range 40 {
		writeFile(t, root, fmt.Sprintf("mod%02d.py", i), tablesPy)
	}

	first, err := Run(context.Background(), options(t, root))
	require.NoError(t, err)

	opts := options(t, root)
	opts.Workers = 1
	second, err := Run(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, first.Results, 40)
	for i := range first.Results {
		assert.Equal(t, first.Results[i].Path, second.Results[i].Path)
		assert.Equal(t, first.Results[i].Issues, second.Results[i].Issues)
	}
	assert.Equal(t, first.Summary, second.Summary)
}

func TestRunRootNotFound(t *testing.T) {
	t.Parallel()

	_, err := Run(context.Background(), options(t, filepath.Join(t.TempDir(), "missing")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, discover.ErrRootNotFound))
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "tables.py", tablesPy)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := Run(ctx, options(t, root))
	assert.Nil(t, report)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunCustomMarker(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "api.py", `import rpc

@rpc.endpoint
def ping(host):
    """Ping."""
`)
	opts := options(t, root)
	opts.Marker = "endpoint"

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.EndpointsChecked)
	require.Len(t, report.Results[0].Issues, 1)
	assert.Equal(t, []string{"host"}, report.Results[0].Issues[0].Params)
}
