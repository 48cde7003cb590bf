package content

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Amila1P/portfolio/internal/typing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultContent(t *testing.T) {
	site, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "AMILA PATHUM", site.Owner.Name)
	assert.Equal(t, []string{"Full-Stack Developer", "Web Developer"}, site.Roles)
	assert.Equal(t, 2, site.TypingRoles().Len())
	assert.Len(t, site.Nav, 7)
	assert.Len(t, site.Skills, 4)
	assert.Len(t, site.Projects, 6)
	assert.Len(t, site.Certificates.Shown, 4)
	assert.Len(t, site.Certificates.Hidden, 1)
	assert.Equal(t, "View All Certificates", site.Certificates.Labels.Collapsed)
	assert.Len(t, site.Platforms, 3)
	assert.Len(t, site.Articles, 3)
	assert.Equal(t, "5+", site.Details[0].Value)

	require.Len(t, site.About.HTML, 2)
	assert.Contains(t, string(site.About.HTML[1]), "<strong>Educational Foundation:</strong>")
	assert.Contains(t, string(site.About.HTML[1]), "<li>")
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{name: "no roles", yaml: "owner: {name: A}\nroles: []\n", wantErr: typing.ErrNoRoles},
		{name: "empty role", yaml: "owner: {name: A}\nroles: [\"\"]\n", wantErr: typing.ErrEmptyRole},
		{name: "no owner", yaml: "roles: [Dev]\n", wantErr: ErrInvalid},
		{name: "bad yaml", yaml: "roles: [Dev\n", wantErr: ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.yaml")
	require.NoError(t, os.WriteFile(path, []byte("owner: {name: Test}\nroles: [Gopher]\n"), 0o644))

	site, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Test", site.Owner.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestStoreReloadKeepsPreviousOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.yaml")
	require.NoError(t, os.WriteFile(path, []byte("owner: {name: One}\nroles: [Gopher]\n"), 0o644))

	s, err := NewStore(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "One", s.Site().Owner.Name)

	require.NoError(t, os.WriteFile(path, []byte("owner: {name: Two}\nroles: [Gopher]\n"), 0o644))
	require.NoError(t, s.Reload())
	assert.Equal(t, "Two", s.Site().Owner.Name)

	require.NoError(t, os.WriteFile(path, []byte("owner: {name: Three}\nroles: []\n"), 0o644))
	assert.Error(t, s.Reload())
	assert.Equal(t, "Two", s.Site().Owner.Name)
}

func TestStoreWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.yaml")
	require.NoError(t, os.WriteFile(path, []byte("owner: {name: Before}\nroles: [Gopher]\n"), 0o644))

	s, err := NewStore(path, nil)
	require.NoError(t, err)
	s.Debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("owner: {name: After}\nroles: [Gopher]\n"), 0o644))

	assert.Eventually(t, func() bool {
		return s.Site().Owner.Name == "After"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestStoreWatchIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "content.yaml")
	require.NoError(t, os.WriteFile(path, []byte("owner: {name: Same}\nroles: [Gopher]\n"), 0o644))

	s, err := NewStore(path, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(s.Pattern, "content.yaml"))

	site := s.Site()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	time.Sleep(400 * time.Millisecond)
	assert.Same(t, site, s.Site())

	cancel()
	require.NoError(t, <-done)
}

func TestStaticStore(t *testing.T) {
	site, err := Default()
	require.NoError(t, err)
	s := NewStaticStore(site)
	assert.Same(t, site, s.Site())
	assert.NoError(t, s.Reload())
}
