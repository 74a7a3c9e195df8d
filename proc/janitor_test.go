package proc

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func touch(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatal(err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestNewArtifactPath(t *testing.T) {
	dir := t.TempDir()
	a, b := NewArtifactPath(dir), NewArtifactPath(dir)
	if a == b {
		t.Fatal("artifact paths collide")
	}
	if filepath.Dir(a) != dir || !IsArtifactName(filepath.Base(a)) {
		t.Fatalf("unexpected path %q", a)
	}
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ArtifactPrefix+"x.mp3")
	touch(t, path, 10)

	if err := Cleanup(path); err != nil {
		t.Fatal(err)
	}
	if exists(path) {
		t.Fatal("artifact still present")
	}
	if err := Cleanup(path); err != nil {
		t.Fatalf("second Cleanup = %v", err)
	}
	if err := Cleanup(""); err != nil {
		t.Fatalf("Cleanup(\"\") = %v", err)
	}
}

func TestCleanupSidecars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ArtifactPrefix+"abc.mp3")
	sidecars := []string{
		ArtifactPrefix + "abc.mp3.part",
		ArtifactPrefix + "abc.part-Frag3",
		ArtifactPrefix + "abc.webm.ytdl",
		ArtifactPrefix + "abc.f251.webm.part",
		ArtifactPrefix + "abc.temp.mp3",
	}
	unrelated := []string{
		ArtifactPrefix + "abcd.mp3.part",
		ArtifactPrefix + "other.mp3",
		"notes.txt",
	}
	touch(t, path, 1)
	for _, n := range append(slices.Clone(sidecars), unrelated...) {
		touch(t, filepath.Join(dir, n), 1)
	}

	if n := CleanupSidecars(path); n != len(sidecars) {
		t.Fatalf("removed %d, want %d", n, len(sidecars))
	}
	for _, n := range sidecars {
		if exists(filepath.Join(dir, n)) {
			t.Errorf("sidecar %s survived", n)
		}
	}
	for _, n := range unrelated {
		if !exists(filepath.Join(dir, n)) {
			t.Errorf("unrelated %s removed", n)
		}
	}
	if !exists(path) {
		t.Error("artifact itself removed")
	}
}

func TestDiscard(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ArtifactPrefix+"d.mp3")
	touch(t, path, 1)
	touch(t, path+".part", 1)
	Discard(path)
	if exists(path) || exists(path+".part") {
		t.Fatal("Discard left files behind")
	}
}

func TestSweep(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, ArtifactPrefix+"live.mp3")
	orphans := []string{ArtifactPrefix + "a.mp3", ArtifactPrefix + "b.webm.part", ArtifactPrefix + "c.part-Frag1"}
	touch(t, keep, 5)
	for _, n := range orphans {
		touch(t, filepath.Join(dir, n), 7)
	}
	touch(t, filepath.Join(dir, "jukebox.db"), 3)
	if err := os.Mkdir(filepath.Join(dir, ArtifactPrefix+"dir.mp3"), 0755); err != nil {
		t.Fatal(err)
	}

	swept, err := Sweep(dir, func(p string) bool { return p == keep })
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, s := range swept {
		if s.Err != nil || s.Size != 7 {
			t.Errorf("swept %+v", s)
		}
		names = append(names, s.Name)
	}
	slices.Sort(names)
	if !slices.Equal(names, orphans) {
		t.Fatalf("swept %v, want %v", names, orphans)
	}
	if !exists(keep) || !exists(filepath.Join(dir, "jukebox.db")) {
		t.Fatal("protected files removed")
	}
}

func TestSweepMissingDir(t *testing.T) {
	swept, err := Sweep(filepath.Join(t.TempDir(), "nope"), nil)
	if err != nil || len(swept) != 0 {
		t.Fatalf("Sweep = %v, %v", swept, err)
	}
}

func TestIsArtifactName(t *testing.T) {
	tests := map[string]bool{
		ArtifactPrefix + "x.mp3":                  true,
		ArtifactPrefix + "x.m4a":                  true,
		ArtifactPrefix + "x.opus":                 true,
		ArtifactPrefix + "x.mp3.part":             true,
		ArtifactPrefix + "x.part-Frag12":          true,
		ArtifactPrefix + "x.txt":                  false,
		"x.mp3":                                   false,
		strings.ToUpper(ArtifactPrefix) + "x.mp3": false,
	}
	for name, want := range tests {
		if got := IsArtifactName(name); got != want {
			t.Errorf("IsArtifactName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestValidateArtifact(t *testing.T) {
	dir := t.TempDir()
	full := filepath.Join(dir, "full.mp3")
	short := filepath.Join(dir, "short.mp3")
	touch(t, full, 2048)
	touch(t, short, 10)

	if n, err := ValidateArtifact(full, 1024); err != nil || n != 2048 {
		t.Fatalf("ValidateArtifact(full) = %d, %v", n, err)
	}
	if _, err := ValidateArtifact(short, 1024); !errors.Is(err, ErrArtifact) {
		t.Fatalf("short err = %v", err)
	}
	if _, err := ValidateArtifact(filepath.Join(dir, "missing.mp3"), 1); !errors.Is(err, ErrArtifact) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing err = %v", err)
	}
}
