package client

import (
	"encoding/json"
	"testing"
)

func TestRecord_UnmarshalJSON_PreservesKeyOrder(t *testing.T) {
	data := []byte(`{"ticker":"AAPL","name":"Apple Inc.","market":"stocks","active":true,"share_class_shares_outstanding":15207000000}`)

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	wantKeys := []string{"ticker", "name", "market", "active", "share_class_shares_outstanding"}
	gotKeys := r.Keys()
	if len(gotKeys) != len(wantKeys) {
		t.Fatalf("Keys() length = %d, want %d", len(gotKeys), len(wantKeys))
	}
	for i, key := range wantKeys {
		if gotKeys[i] != key {
			t.Errorf("Keys()[%d] = %q, want %q", i, gotKeys[i], key)
		}
	}
}

func TestRecord_UnmarshalJSON_LargeNumbersKeepWireForm(t *testing.T) {
	data := []byte(`{"market_cap":2953679651260.5,"shares":15207000000}`)

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	shares, ok := r.Get("shares")
	if !ok {
		t.Fatal("shares field missing")
	}
	num, ok := shares.(json.Number)
	if !ok {
		t.Fatalf("shares is %T, want json.Number", shares)
	}
	if num.String() != "15207000000" {
		t.Errorf("shares = %q, want %q", num.String(), "15207000000")
	}
}

func TestRecord_UnmarshalJSON_RejectsNonObject(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "array", data: `["AAPL"]`},
		{name: "string", data: `"AAPL"`},
		{name: "number", data: `42`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Record
			if err := json.Unmarshal([]byte(tt.data), &r); err == nil {
				t.Errorf("Unmarshal(%s) should fail for non-object", tt.data)
			}
		})
	}
}

func TestRecord_Set_PreservesInsertionOrder(t *testing.T) {
	r := NewRecord()
	r.Set("ticker", "MSFT")
	r.Set("name", "Microsoft Corporation")
	r.Set("ticker", "MSFT") // overwrite must not duplicate the key

	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}

	keys := r.Keys()
	if keys[0] != "ticker" || keys[1] != "name" {
		t.Errorf("Keys() = %v, want [ticker name]", keys)
	}
}

func TestRecord_Get_MissingField(t *testing.T) {
	r := NewRecord()
	r.Set("ticker", "GOOG")

	if _, ok := r.Get("currency_name"); ok {
		t.Error("Get() should report missing fields")
	}
}
