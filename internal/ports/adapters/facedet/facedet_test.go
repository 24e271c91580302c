package facedet

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestVerify_MissingBinary(t *testing.T) {
	a := New("clipforge-missing-detector", "model.onnx")
	err := a.Verify()
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if !strings.Contains(err.Error(), "binary") {
		t.Fatalf("error should name the binary: %v", err)
	}
}

func TestVerify_MissingModel(t *testing.T) {
	a := New("sh", filepath.Join(t.TempDir(), "absent.onnx"))
	err := a.Verify()
	if err == nil {
		t.Fatal("expected error for missing model")
	}
	if !strings.Contains(err.Error(), "model") {
		t.Fatalf("error should name the model: %v", err)
	}
}
