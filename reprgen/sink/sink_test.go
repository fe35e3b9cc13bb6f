package sink

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		errMsg string // empty means valid
	}{
		{name: "file", path: "repr_gen.go"},
		{name: "nested", path: "internal/shop/repr_gen.go"},
		{name: "empty", path: "", errMsg: "empty"},
		{name: "absolute", path: "/tmp/repr_gen.go", errMsg: "absolute paths not allowed"},
		{name: "drive letter", path: "C:repr_gen.go", errMsg: "absolute paths not allowed"},
		{name: "traversal", path: "shop/../repr_gen.go", errMsg: "path traversal not allowed"},
		{name: "parent", path: "..", errMsg: "path traversal not allowed"},
		{name: "dot prefix", path: "./repr_gen.go", errMsg: "not clean"},
		{name: "double slash", path: "shop//repr_gen.go", errMsg: "not clean"},
		{name: "trailing slash", path: "shop/", errMsg: "not clean"},
		{name: "dotfile", path: ".repr_gen.go"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("ValidatePath(%q) = %v, want nil", tt.path, err)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidatePath(%q) = nil, want error containing %q", tt.path, tt.errMsg)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("ValidatePath(%q) = %q, want error containing %q", tt.path, err, tt.errMsg)
			}
		})
	}
}

func TestMemorySink(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySink()

	content := []byte("package shop\n")
	if err := s.WriteFile(ctx, "b/repr_gen.go", content); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteFile(ctx, "a/repr_gen.go", []byte("package a\n")); err != nil {
		t.Fatal(err)
	}

	// The sink keeps its own copy.
	content[0] = 'X'
	if got := string(s.Get("b/repr_gen.go")); got != "package shop\n" {
		t.Errorf("Get = %q", got)
	}
	if got := s.Get("missing.go"); got != nil {
		t.Errorf("Get(missing) = %q, want nil", got)
	}
	if got := strings.Join(s.Paths(), ","); got != "a/repr_gen.go,b/repr_gen.go" {
		t.Errorf("Paths = %s", got)
	}

	if err := s.WriteFile(ctx, "../escape.go", nil); err == nil {
		t.Error("expected error for traversal")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := s.WriteFile(cancelled, "c.go", nil); err == nil {
		t.Error("expected error for cancelled context")
	}

	s.Reset()
	if len(s.Paths()) != 0 {
		t.Errorf("Paths after Reset = %v", s.Paths())
	}
}

func TestMemorySink_Concurrent(t *testing.T) {
	s := NewMemorySink()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := filepath.ToSlash(filepath.Join("pkg", string(rune('a'+i)), "repr_gen.go"))
			if err := s.WriteFile(context.Background(), name, []byte{byte(i)}); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()
	if n := len(s.Paths()); n != 20 {
		t.Errorf("got %d paths, want 20", n)
	}
}

func TestFilesystemSink(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := NewFilesystemSink(root)

	if err := s.WriteFile(ctx, "shop/repr_gen.go", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	full := filepath.Join(root, "shop", "repr_gen.go")
	got, err := os.ReadFile(full)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v1" {
		t.Errorf("content = %q", got)
	}
	info, err := os.Stat(full)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0644 {
		t.Errorf("mode = %v, want 0644", perm)
	}

	if err := s.WriteFile(ctx, "shop/repr_gen.go", []byte("v2")); err != nil {
		t.Fatal(err)
	}
	if got, _ := os.ReadFile(full); string(got) != "v2" {
		t.Errorf("after overwrite = %q", got)
	}

	entries, err := os.ReadDir(filepath.Join(root, "shop"))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".reprgen-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestFilesystemSink_SkipUnchanged(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := NewFilesystemSink(root)
	full := filepath.Join(root, "repr_gen.go")

	if err := s.WriteFile(ctx, "repr_gen.go", []byte("same")); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(full, old, old); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteFile(ctx, "repr_gen.go", []byte("same")); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(full)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(old) {
		t.Errorf("unchanged file was rewritten (mtime %v, want %v)", info.ModTime(), old)
	}
}

func TestFilesystemSink_NoOverwrite(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := &FilesystemSink{Root: root}

	if err := s.WriteFile(ctx, "repr_gen.go", []byte("first")); err != nil {
		t.Fatal(err)
	}
	err := s.WriteFile(ctx, "repr_gen.go", []byte("second"))
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already exists error, got %v", err)
	}
	if got, _ := os.ReadFile(filepath.Join(root, "repr_gen.go")); string(got) != "first" {
		t.Errorf("content = %q, want first", got)
	}
}

func TestFilesystemSink_PathSecurity(t *testing.T) {
	root := t.TempDir()
	s := NewFilesystemSink(root)
	for _, p := range []string{"../escape.go", "/etc/passwd", "a/../../b.go"} {
		if err := s.WriteFile(context.Background(), p, []byte("x")); err == nil {
			t.Errorf("WriteFile(%q) succeeded, want error", p)
		}
	}
}
