package audiofs

import (
	"context"
	"errors"
	"testing"

	"ai-clinical-scribe-service/internal/errs"
)

func TestSaveAndRetrieve(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	audio := []byte{0x52, 0x49, 0x46, 0x46, 0x00, 0x01}
	if err := store.Save(ctx, "rec-1", audio); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Retrieve(ctx, "rec-1")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if string(got) != string(audio) {
		t.Errorf("Retrieve = %v, want %v", got, audio)
	}
}

func TestRetrieveMissing(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = store.Retrieve(context.Background(), "rec-missing")
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Retrieve error = %v, want ErrNotFound", err)
	}
}

func TestRejectsPathTraversal(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, id := range []string{"", "../escape", "a/b", `a\b`} {
		if _, err := store.Retrieve(context.Background(), id); !errors.Is(err, errs.ErrValidation) {
			t.Errorf("Retrieve(%q) error = %v, want ErrValidation", id, err)
		}
	}
}
