package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jiangxin/gistore/internal/adapters/sysconfig"
	"github.com/jiangxin/gistore/internal/domain"
	"github.com/jiangxin/gistore/internal/taskreg"
)

// fakeFS is an in-memory FileSystemPort/taskreg.FileSystem good enough
// to drive the orchestrator without touching the real disk.
type fakeFS struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool
	links map[string]string
}

func newFakeFS() *fakeFS {
	return &fakeFS{files: map[string][]byte{}, dirs: map[string]bool{"/": true}, links: map[string]string{}}
}

func (f *fakeFS) Getwd(context.Context) (string, error) { return "/cwd", nil }

func (f *fakeFS) EvalSymlinks(_ context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if target, ok := f.links[path]; ok {
		return target, nil
	}
	if f.dirs[path] || f.files[path] != nil {
		return path, nil
	}
	return "", fmt.Errorf("%s: %w", path, os.ErrNotExist)
}

func (f *fakeFS) Exists(_ context.Context, path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dirs[path] {
		return true
	}
	if _, ok := f.files[path]; ok {
		return true
	}
	_, ok := f.links[path]
	return ok
}

func (f *fakeFS) ReadDir(_ context.Context, path string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(path, "/") + "/"
	seen := map[string]bool{}
	for p := range f.links {
		if strings.HasPrefix(p, prefix) {
			rest := strings.TrimPrefix(p, prefix)
			if !strings.Contains(rest, "/") {
				seen[rest] = true
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeFS) Readlink(_ context.Context, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if target, ok := f.links[path]; ok {
		return target, nil
	}
	return "", fmt.Errorf("%s: not a symlink", path)
}

func (f *fakeFS) MkdirAll(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for p := path; p != "/" && p != "."; p = filepath.Dir(p) {
		f.dirs[p] = true
	}
	return nil
}

func (f *fakeFS) WriteFile(_ context.Context, path string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	f.files[path] = cp
	return nil
}

func (f *fakeFS) ReadFile(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, os.ErrNotExist)
	}
	return data, nil
}

func (f *fakeFS) RemoveAll(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(path, "/") + "/"
	for p := range f.files {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(f.files, p)
		}
	}
	for p := range f.dirs {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(f.dirs, p)
		}
	}
	return nil
}

func (f *fakeFS) addLink(name, target string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links[name] = target
}

// fakeResolver treats every path the fakeFS has ever heard of as
// existing and resolved to itself.
type fakeResolver struct {
	fs *fakeFS
}

func (r fakeResolver) Resolve(ctx context.Context, path string) (string, bool, error) {
	return path, r.fs.Exists(ctx, path), nil
}

// fakeMount records every mount/unmount call without touching the
// kernel.
type fakeMount struct {
	mu       sync.Mutex
	mounted  map[string]string
	failNext bool
}

func newFakeMount() *fakeMount { return &fakeMount{mounted: map[string]string{}} }

func (m *fakeMount) Mount(_ context.Context, src, target string) error {
	if m.failNext {
		return fmt.Errorf("mount %s: simulated failure", target)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mounted[target] = src
	return nil
}

func (m *fakeMount) Unmount(_ context.Context, target string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.mounted, target)
	return nil
}

func (m *fakeMount) UnmountAll(_ context.Context, _ string, targets []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range targets {
		delete(m.mounted, t)
	}
	return nil
}

// fakeLock is an in-memory LockPort: one bool per event, never
// actually contended, with an optional forced failure for testing the
// ErrLock path.
type fakeLock struct {
	mu       sync.Mutex
	held     map[domain.LockEvent]bool
	failOn   domain.LockEvent
}

func newFakeLock() *fakeLock { return &fakeLock{held: map[domain.LockEvent]bool{}} }

func (l *fakeLock) Lock(_ context.Context, event domain.LockEvent) error {
	if l.failOn == event {
		return fmt.Errorf("%s: %w", event, domain.ErrLock)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[event] = true
	return nil
}

func (l *fakeLock) Unlock(_ context.Context, event domain.LockEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, event)
	return nil
}

func (l *fakeLock) HasLock(_ context.Context, event domain.LockEvent) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[event]
}

func (l *fakeLock) AssertLock(ctx context.Context, event domain.LockEvent) error {
	if !l.HasLock(ctx, event) {
		return fmt.Errorf("%s: %w", event, domain.ErrLock)
	}
	return nil
}

func (l *fakeLock) AssertNoLock(ctx context.Context, event domain.LockEvent) error {
	if l.HasLock(ctx, event) {
		return fmt.Errorf("%s: %w", event, domain.ErrLock)
	}
	return nil
}

// fakeDriver is an in-memory domain.Driver recording every call it
// gets, with just enough behavior to drive Init/Commit/flattenSubmodules
// without shelling out to git.
type fakeDriver struct {
	mu sync.Mutex

	initialized    bool
	revListResults map[string][]string
	updatedRefs    map[string]string
	committed      []string
	configs        map[string]map[string]string

	statusLines     []string
	submoduleRounds [][]domain.SubmoduleEntry
	submoduleCalls  int
	removedCached   [][]string
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		revListResults: map[string][]string{},
		updatedRefs:    map[string]string{},
		configs:        map[string]map[string]string{},
	}
}

func (d *fakeDriver) Init(context.Context, string, domain.CommitOptions) error {
	d.initialized = true
	return nil
}

func (d *fakeDriver) IsRepo(context.Context, string) bool { return d.initialized }

func (d *fakeDriver) AddAll(context.Context, string, string) error { return nil }

func (d *fakeDriver) AddPath(context.Context, string, string, bool, ...string) error { return nil }

func (d *fakeDriver) StatusPorcelainPath(context.Context, string, string, string) ([]string, error) {
	return nil, nil
}

func (d *fakeDriver) ListDeleted(context.Context, string, string) ([]string, error) { return nil, nil }

func (d *fakeDriver) RemoveCached(_ context.Context, _, _ string, paths []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.removedCached = append(d.removedCached, paths)
	return nil
}

func (d *fakeDriver) StatusPorcelain(context.Context, string, string) ([]string, error) {
	return d.statusLines, nil
}

func (d *fakeDriver) SubmoduleStatus(context.Context, string, string) ([]domain.SubmoduleEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.submoduleCalls >= len(d.submoduleRounds) {
		return nil, nil
	}
	round := d.submoduleRounds[d.submoduleCalls]
	d.submoduleCalls++
	return round, nil
}

func (d *fakeDriver) Commit(_ context.Context, _, _, messageFile string, _ domain.CommitOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.committed = append(d.committed, messageFile)
	return nil
}

func (d *fakeDriver) RevList(_ context.Context, _, _, ref string) ([]string, error) {
	return d.revListResults[ref], nil
}

func (d *fakeDriver) Branches(context.Context, string) ([]string, error) { return nil, nil }

func (d *fakeDriver) Tag(context.Context, string, string, string) error { return nil }

func (d *fakeDriver) UpdateRef(_ context.Context, _, ref, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updatedRefs[ref] = value
	return nil
}

func (d *fakeDriver) DeleteBranch(context.Context, string, string) error { return nil }

func (d *fakeDriver) CatFile(context.Context, string, string) ([]byte, error) { return nil, nil }

func (d *fakeDriver) HashObject(context.Context, string, string, []byte) (string, error) {
	return "", nil
}

func (d *fakeDriver) Log(context.Context, string, string, []string) (string, error) {
	return "", nil
}

func (d *fakeDriver) ConfigGetAll(_ context.Context, file string) (map[string]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := map[string]string{}
	for k, v := range d.configs[file] {
		out[k] = v
	}
	return out, nil
}

func (d *fakeDriver) ConfigSet(_ context.Context, file, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.configs[file] == nil {
		d.configs[file] = map[string]string{}
	}
	d.configs[file][key] = value
	return nil
}

func (d *fakeDriver) ConfigUnsetAll(_ context.Context, file, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.configs[file], key)
	return nil
}

func (d *fakeDriver) ConfigRemoveSection(_ context.Context, file, section string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	prefix := section + "."
	for k := range d.configs[file] {
		if strings.HasPrefix(k, prefix) {
			delete(d.configs[file], k)
		}
	}
	return nil
}

// activeFakeDriver backs the "fake-test" entry in domain's backend
// registry, letting tests exercise domain.NewDriver's real lookup path
// (the same one production main.backend selection uses) without
// pulling in the real git adapter.
var activeFakeDriver *fakeDriver

func init() {
	domain.RegisterDriver("fake-test", func() domain.Driver { return activeFakeDriver })
}

// newTestDeps builds a Dependencies wired entirely to fakes, reused by
// every test in this package.
func newTestDeps(fs *fakeFS, drv *fakeDriver) *Dependencies {
	activeFakeDriver = drv
	lock := newFakeLock()
	sysCfg := sysconfig.Default(false, "/home/test")
	sysCfg.Main.Backend = "fake-test"
	return &Dependencies{
		Logger:   slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
		FS:       fs,
		Tasks:    taskreg.New(fs, "/tasks"),
		Resolver: fakeResolver{fs: fs},
		Mount:    newFakeMount(),
		Locks:    func(string) LockPort { return lock },
		ConfigDriver: func() domain.Driver {
			return drv
		},
		SysConfig:      sysCfg,
		RuntimeDir:     "/run/gistore",
		Hostname:       "host",
		Username:       "user",
		PID:            4242,
		CommitterName:  "Gistore",
		CommitterEmail: "gistore@localhost",
	}
}
