package finder_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tokenlens/tokenlens/pkg/finder"
)

func newWorkspaceFs(t *testing.T, paths ...string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for _, path := range paths {
		require.NoError(t, afero.WriteFile(fsys, path, []byte("  greeting: 'hi'\n"), 0o644))
	}
	return fsys
}

func TestFindDefinitionsFileConfigured(t *testing.T) {
	fsys := newWorkspaceFs(t, "/ws/src/i18n/translations.ts")

	f := finder.NewDefaultFinder(fsys, "/ws", "src/i18n/translations.ts")
	path, err := f.FindDefinitionsFile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/ws/src/i18n/translations.ts", path)
}

func TestFindDefinitionsFileConfiguredMissing(t *testing.T) {
	fsys := newWorkspaceFs(t)

	f := finder.NewDefaultFinder(fsys, "/ws", "nope/translations.ts")
	_, err := f.FindDefinitionsFile(context.Background())
	assert.Error(t, err)
}

func TestFindDefinitionsFileBySearch(t *testing.T) {
	fsys := newWorkspaceFs(t, "/ws/deep/nested/translations.ts", "/ws/other/readme.md")

	f := finder.NewDefaultFinder(fsys, "/ws", "")
	path, err := f.FindDefinitionsFile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/ws/deep/nested/translations.ts", path)
}

func TestFindDefinitionsFileSearchPrefersFirstSorted(t *testing.T) {
	fsys := newWorkspaceFs(t, "/ws/b/translations.ts", "/ws/a/translations.js")

	f := finder.NewDefaultFinder(fsys, "/ws", "")
	path, err := f.FindDefinitionsFile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/ws/a/translations.js", path)
}

func TestFindDefinitionsFileNoWorkspace(t *testing.T) {
	f := finder.NewDefaultFinder(afero.NewMemMapFs(), "", "")
	_, err := f.FindDefinitionsFile(context.Background())
	assert.Error(t, err)
}

func TestFindDefinitionsFileNothingFound(t *testing.T) {
	fsys := newWorkspaceFs(t, "/ws/src/main.ts")

	f := finder.NewDefaultFinder(fsys, "/ws", "")
	_, err := f.FindDefinitionsFile(context.Background())
	assert.Error(t, err)
}

func TestSetRelativePathSwitchesResolution(t *testing.T) {
	fsys := newWorkspaceFs(t, "/ws/a/translations.ts", "/ws/b/custom.ts")

	f := finder.NewDefaultFinder(fsys, "/ws", "")
	path, err := f.FindDefinitionsFile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/ws/a/translations.ts", path)

	f.SetRelativePath("b/custom.ts")
	path, err = f.FindDefinitionsFile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/ws/b/custom.ts", path)
}
