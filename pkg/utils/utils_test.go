package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateUUID(t *testing.T) {
	a, b := GenerateUUID(), GenerateUUID()
	if a == b {
		t.Fatalf("two UUIDs are equal: %s", a)
	}
	for _, id := range []string{a, b} {
		if !IsUUID(id) {
			t.Errorf("IsUUID(%q) = false", id)
		}
	}
	if IsUUID("not-a-uuid") {
		t.Error("IsUUID accepted garbage")
	}
}

func TestStemName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/tmp/capture.wav", "capture"},
		{"pass.2024.mp3", "pass.2024"},
		{"noext", "noext"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := StemName(tt.path); got != tt.want {
				t.Errorf("StemName(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestIsWAV(t *testing.T) {
	if !IsWAV("a/B.WAV") || IsWAV("a/b.flac") {
		t.Error("IsWAV misclassified")
	}
}

func TestMoveAndDeleteFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.tmp")
	dst := filepath.Join(dir, "sub", "a.wav")

	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := MakeDir(filepath.Dir(dst)); err != nil {
		t.Fatal(err)
	}
	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile: %v", err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Fatalf("moved file missing: %v", err)
	}
	if err := DeleteFile(dst); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if err := DeleteFile(dst); err != nil {
		t.Errorf("second DeleteFile: %v", err)
	}
}
