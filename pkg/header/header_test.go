package header

import (
	"encoding/json"
	"testing"
)

func TestNewAppliesOptions(t *testing.T) {
	h := New(
		WithKind(KindAggregate),
		WithAPIVersion(APIVersion),
		WithMetadata("model", "lma"),
	)

	if h.GetKind() != KindAggregate {
		t.Errorf("unexpected kind: %q", h.Kind)
	}
	if h.APIVersion != APIVersion {
		t.Errorf("unexpected apiVersion: %q", h.APIVersion)
	}
	if h.GetMetadata()["model"] != "lma" {
		t.Errorf("unexpected metadata: %v", h.Metadata)
	}
}

func TestWithMetadataInitializesMap(t *testing.T) {
	var h Header
	WithMetadata("unit", "app/0")(&h)
	if h.Metadata["unit"] != "app/0" {
		t.Errorf("unexpected metadata: %v", h.Metadata)
	}
}

func TestKindIsValid(t *testing.T) {
	for _, k := range []Kind{KindAggregate, KindBundle} {
		if !k.IsValid() {
			t.Errorf("expected %q to be valid", k)
		}
	}
	bogus := Kind("Snapshot")
	if bogus.IsValid() {
		t.Error("expected unknown kind to be invalid")
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := New(WithKind(KindBundle), WithAPIVersion(APIVersion), WithMetadata("model", "lma"))

	content, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded Header
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.Kind != KindBundle || decoded.Metadata["model"] != "lma" {
		t.Errorf("round trip mismatch: %+v", decoded)
	}
}
