package finance

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestJsonObjectWriter(t *testing.T) {
	t.Run("empty object", func(t *testing.T) {
		var w jsonObjectWriter
		got, err := w.MarshalJSON()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := "{}"; string(got) != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("field order", func(t *testing.T) {
		var w jsonObjectWriter
		w.Append("datatype", "Currency").Append("code", "EUR").Append("places", 2)
		got, err := w.MarshalJSON()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := `{"datatype":"Currency","code":"EUR","places":2}`
		if string(got) != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("embed object", func(t *testing.T) {
		var w jsonObjectWriter
		w.Append("a", 1)
		w.Embed(json.RawMessage(`{"c":3,"d":4}`))
		w.Embed(json.RawMessage(`{}`))
		w.Append("b", 2)
		got, err := w.MarshalJSON()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := `{"a":1,"c":3,"d":4,"b":2}`
		if string(got) != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("optional fields", func(t *testing.T) {
		var w jsonObjectWriter
		w.Append("a", 0)
		w.Optional("b", "")
		w.Optional("c", 0)
		w.Optional("d", []string{})
		w.Optional("e", "hello")
		got, err := w.MarshalJSON()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := `{"a":0,"e":"hello"}`
		if string(got) != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("embed from", func(t *testing.T) {
		var w jsonObjectWriter
		embedded := struct {
			C int    `json:"c"`
			D string `json:"d"`
		}{C: 3, D: "hello"}
		w.Append("a", 1).EmbedFrom(embedded).Append("b", 2)
		got, err := w.MarshalJSON()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := `{"a":1,"c":3,"d":"hello","b":2}`
		if string(got) != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("sticky error", func(t *testing.T) {
		var w jsonObjectWriter
		w.Append("f", func() {}).Append("a", 1)
		if _, err := w.MarshalJSON(); err == nil {
			t.Fatal("want an error for an unsupported value")
		} else if errors.Unwrap(err) == nil {
			t.Errorf("error %v should wrap the json error", err)
		}
	})
}
