package domain

import (
	"strings"
	"testing"
)

func TestGenerateDocumentID(t *testing.T) {
	id, err := GenerateDocumentID()
	if err != nil {
		t.Fatalf("GenerateDocumentID: %v", err)
	}
	if !strings.HasPrefix(id, DocumentIDPrefix) {
		t.Fatalf("id %q missing prefix %q", id, DocumentIDPrefix)
	}
	if id != strings.ToLower(id) {
		t.Fatalf("id %q not lowercase", id)
	}

	other, err := GenerateDocumentID()
	if err != nil {
		t.Fatalf("GenerateDocumentID: %v", err)
	}
	if id == other {
		t.Fatalf("generated duplicate id %q", id)
	}
}

func TestValidateDocumentID(t *testing.T) {
	if err := ValidateDocumentID("bmdc-abc"); err != nil {
		t.Fatalf("valid id rejected: %v", err)
	}
	if err := ValidateDocumentID(""); !IsDomainError(err, ErrMissingArgument.Code) {
		t.Fatalf("empty id err = %v", err)
	}
	if err := ValidateDocumentID(strings.Repeat("x", MaxDocumentIDLength+1)); !IsDomainError(err, ErrInvalidArgument.Code) {
		t.Fatalf("long id err = %v", err)
	}
}

func TestDocument_Empty(t *testing.T) {
	d := &Document{ID: "bmdc-x"}
	if !d.Empty() {
		t.Fatal("fresh document should be empty")
	}
	d.Snapshot = []byte(`{}`)
	d.Version = 1
	if d.Empty() {
		t.Fatal("written document should not be empty")
	}
}

func TestDocument_Clone(t *testing.T) {
	d := &Document{ID: "bmdc-x", Snapshot: []byte(`{"a":1}`), Version: 2}
	c := d.Clone()
	c.Snapshot[0] = '!'
	if d.Snapshot[0] == '!' {
		t.Fatal("Clone shares snapshot backing array")
	}
}
