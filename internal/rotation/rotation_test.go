package rotation

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/jiangxin/gistore/internal/domain"
)

// fakeDriver is an in-memory stand-in for domain.Driver sufficient to
// exercise the rotation algorithm: refs are just a map, commit
// "objects" are synthetic strings of the form "commit:<sha>:parent
// lines...".
type fakeDriver struct {
	refs    map[string]string // ref name -> commit sha
	objects map[string]string // sha -> raw object text
	nextSha int
	grafts  string
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{refs: map[string]string{}, objects: map[string]string{}}
}

func (f *fakeDriver) newSha() string {
	f.nextSha++
	return fmt.Sprintf("sha%04d", f.nextSha)
}

// addCommit creates a commit object with the given parents and
// returns its sha, updating no refs.
func (f *fakeDriver) addCommit(parents ...string) string {
	sha := f.newSha()
	var b strings.Builder
	b.WriteString("tree treesha\n")
	for _, p := range parents {
		b.WriteString("parent " + p + "\n")
	}
	b.WriteString("author a <a@b> 0 +0000\n")
	b.WriteString("committer a <a@b> 0 +0000\n\nmsg\n")
	f.objects[sha] = b.String()
	return sha
}

func (f *fakeDriver) Init(context.Context, string, domain.CommitOptions) error { return nil }
func (f *fakeDriver) IsRepo(context.Context, string) bool                     { return true }
func (f *fakeDriver) AddAll(context.Context, string, string) error            { return nil }
func (f *fakeDriver) AddPath(context.Context, string, string, bool, ...string) error { return nil }
func (f *fakeDriver) StatusPorcelainPath(context.Context, string, string, string) ([]string, error) {
	return nil, nil
}
func (f *fakeDriver) ListDeleted(context.Context, string, string) ([]string, error) {
	return nil, nil
}
func (f *fakeDriver) RemoveCached(context.Context, string, string, []string) error { return nil }
func (f *fakeDriver) StatusPorcelain(context.Context, string, string) ([]string, error) {
	return nil, nil
}
func (f *fakeDriver) SubmoduleStatus(context.Context, string, string) ([]domain.SubmoduleEntry, error) {
	return nil, nil
}
func (f *fakeDriver) Commit(context.Context, string, string, string, domain.CommitOptions) error {
	return nil
}

func (f *fakeDriver) RevList(_ context.Context, _ string, _ string, ref string) ([]string, error) {
	sha, ok := f.refs[ref]
	if !ok {
		sha, ok = f.refs["refs/heads/"+ref]
		if !ok {
			return nil, fmt.Errorf("unknown ref %s", ref)
		}
	}
	var chain []string
	cur := sha
	for cur != "" {
		chain = append(chain, cur)
		obj := f.objects[cur]
		cur = ""
		for _, line := range strings.Split(obj, "\n") {
			if strings.HasPrefix(line, "parent ") {
				cur = strings.TrimPrefix(line, "parent ")
				break
			}
		}
	}
	return chain, nil
}

func (f *fakeDriver) Branches(context.Context, string) ([]string, error) {
	var names []string
	for ref := range f.refs {
		names = append(names, strings.TrimPrefix(ref, "refs/heads/"))
	}
	return names, nil
}

func (f *fakeDriver) Tag(context.Context, string, string, string) error { return nil }

func (f *fakeDriver) UpdateRef(_ context.Context, _ string, ref, value string) error {
	f.refs[ref] = value
	return nil
}

func (f *fakeDriver) DeleteBranch(_ context.Context, _ string, name string) error {
	delete(f.refs, "refs/heads/"+name)
	return nil
}

func (f *fakeDriver) CatFile(_ context.Context, _ string, ref string) ([]byte, error) {
	obj, ok := f.objects[ref]
	if !ok {
		return nil, fmt.Errorf("unknown object %s", ref)
	}
	return []byte(obj), nil
}

func (f *fakeDriver) HashObject(_ context.Context, _ string, _ string, data []byte) (string, error) {
	sha := f.newSha()
	f.objects[sha] = string(data)
	return sha, nil
}

func (f *fakeDriver) Log(context.Context, string, string, []string) (string, error) { return "", nil }

func (f *fakeDriver) ConfigGetAll(context.Context, string) (map[string]string, error) {
	return nil, nil
}
func (f *fakeDriver) ConfigSet(context.Context, string, string, string) error         { return nil }
func (f *fakeDriver) ConfigUnsetAll(context.Context, string, string) error            { return nil }
func (f *fakeDriver) ConfigRemoveSection(context.Context, string, string) error       { return nil }

func TestMaybeRotate_DisabledWhenHistoryOrCopiesNonPositive(t *testing.T) {
	f := newFakeDriver()
	rotated, err := MaybeRotate(context.Background(), f, "/repo.git", 0, 5)
	if err != nil || rotated {
		t.Fatalf("expected no rotation, got rotated=%v err=%v", rotated, err)
	}
	rotated, err = MaybeRotate(context.Background(), f, "/repo.git", 10, 0)
	if err != nil || rotated {
		t.Fatalf("expected no rotation, got rotated=%v err=%v", rotated, err)
	}
}

func TestMaybeRotate_NoOpBelowThreshold(t *testing.T) {
	f := newFakeDriver()
	c1 := f.addCommit()
	f.refs["refs/heads/master"] = c1
	rotated, err := MaybeRotate(context.Background(), f, "/repo.git", 5, 3)
	if err != nil {
		t.Fatal(err)
	}
	if rotated {
		t.Fatal("expected no rotation below threshold")
	}
}

func TestMaybeRotate_FirstRotationCreatesGenerationOne(t *testing.T) {
	writeGraftFile = func(context.Context, domain.Driver, string, string) error { return nil }
	f := newFakeDriver()
	c1 := f.addCommit()
	c2 := f.addCommit(c1)
	f.refs["refs/heads/master"] = c2

	rotated, err := MaybeRotate(context.Background(), f, "/repo.git", 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !rotated {
		t.Fatal("expected rotation to trigger")
	}
	if _, ok := f.refs["refs/heads/gistore/1"]; !ok {
		t.Fatal("expected gistore/1 to be created")
	}
	newMaster := f.refs["refs/heads/master"]
	obj := f.objects[newMaster]
	if strings.Contains(obj, "parent ") {
		t.Fatalf("expected reparented master to have no parent lines, got %q", obj)
	}
}

func TestMaybeRotate_SlidesWindowAtCapacity(t *testing.T) {
	writeGraftFile = func(context.Context, domain.Driver, string, string) error { return nil }
	f := newFakeDriver()

	c1 := f.addCommit()
	f.refs["refs/heads/gistore/1"] = c1
	c2 := f.addCommit()
	f.refs["refs/heads/gistore/2"] = c2
	c3 := f.addCommit()
	f.refs["refs/heads/gistore/3"] = c3

	masterC1 := f.addCommit(c3)
	masterC2 := f.addCommit(masterC1)
	f.refs["refs/heads/master"] = masterC2

	rotated, err := MaybeRotate(context.Background(), f, "/repo.git", 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !rotated {
		t.Fatal("expected rotation")
	}
	if f.refs["refs/heads/gistore/1"] != c2 {
		t.Fatalf("expected gistore/1 to slide to old gistore/2 value, got %s want %s", f.refs["refs/heads/gistore/1"], c2)
	}
	if f.refs["refs/heads/gistore/2"] != c3 {
		t.Fatalf("expected gistore/2 to slide to old gistore/3 value")
	}
	if f.refs["refs/heads/gistore/3"] == c3 || f.refs["refs/heads/gistore/3"] == "" {
		t.Fatal("expected gistore/3 to be replaced by the new master snapshot")
	}
}
