package store

import (
	"context"
	"errors"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "data.csv", want: "data.csv"},
		{in: "../../etc/passwd", want: "passwd"},
		{in: `C:\Users\me\run 1.txt`, want: "run_1.txt"},
		{in: "my  file (2).csv", want: "my_file_2.csv"},
		{in: "..", want: ""},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		if got := SanitizeName(tt.in); got != tt.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLocal(t *testing.T) {
	ctx := context.Background()
	l, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}

	if err := l.Put(ctx, "output_a.csv", []byte("x")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := l.Get(ctx, "output_a.csv")
	if err != nil || string(got) != "x" {
		t.Fatalf("Get() = %q, %v", got, err)
	}
	if ok, err := l.Exists(ctx, "output_a.csv"); !ok || err != nil {
		t.Fatalf("Exists() = %v, %v, want true", ok, err)
	}

	if _, err := l.Get(ctx, "missing.csv"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want %v", err, ErrNotFound)
	}
	if _, err := l.Get(ctx, "../output_a.csv"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() with traversal error = %v, want %v", err, ErrNotFound)
	}
	if ok, _ := l.Exists(ctx, "missing.csv"); ok {
		t.Fatalf("Exists() = true for missing object")
	}
}

func TestLocalListDelete(t *testing.T) {
	ctx := context.Background()
	l, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}

	for _, name := range []string{"output_a.csv", "output_b.csv"} {
		if err := l.Put(ctx, name, []byte("x")); err != nil {
			t.Fatalf("Put(%s) error = %v", name, err)
		}
	}

	objs, err := l.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(objs) != 2 || objs[0].Name != "output_a.csv" || objs[0].ModTime.IsZero() {
		t.Fatalf("List() = %+v", objs)
	}

	if err := l.Delete(ctx, "output_a.csv"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := l.Delete(ctx, "output_a.csv"); err != nil {
		t.Fatalf("Delete() of a missing object error = %v", err)
	}
	if ok, _ := l.Exists(ctx, "output_a.csv"); ok {
		t.Error("object still exists after Delete()")
	}
}
