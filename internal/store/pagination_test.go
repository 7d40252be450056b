package store

import "testing"

func TestPaginationParamsValidate(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"zero gets default", 0, 100},
		{"negative gets default", -5, 100},
		{"normal passes through", 50, 50},
		{"over maximum is clamped", 5000, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PaginationParams{Limit: tt.limit}
			p.Validate()
			if p.Limit != tt.want {
				t.Errorf("expected limit %d, got %d", tt.want, p.Limit)
			}
		})
	}
}

func TestCursorRoundTrip(t *testing.T) {
	cursor := EncodeCursor("2024-01-01T00:00:00Z|pho_abc")
	if cursor == "" {
		t.Fatal("expected non-empty cursor")
	}

	key, err := DecodeCursor(cursor)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if key != "2024-01-01T00:00:00Z|pho_abc" {
		t.Errorf("round trip mismatch: %q", key)
	}
}

func TestEmptyCursor(t *testing.T) {
	if EncodeCursor("") != "" {
		t.Error("empty key should encode to empty cursor")
	}

	key, err := DecodeCursor("")
	if err != nil || key != "" {
		t.Errorf("empty cursor should decode to empty key, got %q %v", key, err)
	}
}

func TestDecodeCursorInvalid(t *testing.T) {
	if _, err := DecodeCursor("!!not-base64!!"); err == nil {
		t.Error("expected error for invalid cursor")
	}
}
