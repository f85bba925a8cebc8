package namespace

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/funnyzak/reqstash/pkg/record"
)

func TestResolve(t *testing.T) {
	root := filepath.Join("home", "me", ".reqstash")
	got := Resolve(root, "SystemA/example", "post")
	want := filepath.Join(root, "SystemA", "example", "POST.json")
	if got != want {
		t.Errorf("Resolve() = %s, want %s", got, want)
	}
}

func TestResolveIsPure(t *testing.T) {
	root := filepath.Join(t.TempDir(), "missing")
	_ = Resolve(root, "a/b", "GET")
	if _, err := os.Stat(root); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Resolve must not touch the filesystem, stat err = %v", err)
	}
}

func TestResolveInjective(t *testing.T) {
	root := "/root"
	namespaces := []string{"a", "a/b", "b", "SystemA/example", "SystemA/example/deeper", "GET"}
	seen := make(map[string]string)
	for _, ns := range namespaces {
		for _, m := range Methods {
			loc := Resolve(root, ns, m)
			key := ns + "|" + m
			if prev, ok := seen[loc]; ok {
				t.Fatalf("%s and %s both resolve to %s", prev, key, loc)
			}
			seen[loc] = key
			if again := Resolve(root, ns, m); again != loc {
				t.Fatalf("Resolve is not deterministic: %s vs %s", loc, again)
			}
		}
	}
}

func TestDir(t *testing.T) {
	if got := Dir("/r", "SystemB"); got != filepath.Join("/r", "SystemB") {
		t.Errorf("Dir() = %s", got)
	}
	if got := Dir("/r", ""); got != "/r" {
		t.Errorf("Dir() with empty namespace = %s, want the root", got)
	}
}

func TestIsURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://api.example.com", true},
		{"HTTP://localhost:8080/x", true},
		{"httpbin/get", false},
		{"SystemA/example", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsURL(tt.in); got != tt.want {
			t.Errorf("IsURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseMethod(t *testing.T) {
	for _, in := range []string{"get", "Post", " PUT ", "delete"} {
		m, err := ParseMethod(in)
		if err != nil {
			t.Fatalf("ParseMethod(%q) failed: %v", in, err)
		}
		if !slices.Contains(Methods, m) {
			t.Errorf("ParseMethod(%q) = %q, not a supported method", in, m)
		}
	}

	_, err := ParseMethod("PATCH")
	var verr *record.ValidationError
	if !errors.As(err, &verr) || verr.Field != "method" {
		t.Fatalf("expected method validation error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	for _, ns := range []string{"a", "SystemA/example", "team-1/svc_2/v3"} {
		if err := Validate(ns); err != nil {
			t.Errorf("Validate(%q) = %v", ns, err)
		}
	}

	for _, ns := range []string{"", "/abs", "a/../b", "..", "a//b", "a/", "./a", `a\b`} {
		var verr *record.ValidationError
		if err := Validate(ns); !errors.As(err, &verr) {
			t.Errorf("Validate(%q) = %v, want a validation error", ns, err)
		}
	}
}

func TestRelative(t *testing.T) {
	root := filepath.Join("/r", "root")
	ns, err := Relative(root, filepath.Join(root, "a", "b"))
	if err != nil || ns != "a/b" {
		t.Fatalf("Relative() = %q, %v", ns, err)
	}

	ns, err = Relative(root, root)
	if err != nil || ns != "" {
		t.Fatalf("Relative() of the root = %q, %v", ns, err)
	}
}
