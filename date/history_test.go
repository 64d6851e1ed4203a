package date

import "testing"

func TestAppend(t *testing.T) {
	h := new(History[string])
	d1, v1 := New(2025, 07, 01), "25 Jul 1"
	d2, v2 := New(2024, 07, 01), "24 Jul 1"

	// Appending two values in reverse order and checking every step of the way.

	if h.Len() != 0 {
		t.Errorf("History.Len() = %v want 0", h.Len())
	}

	h.Append(d1, v1)
	if h.Len() != 1 {
		t.Errorf("Append(d1, v1).Len() = %v want 1", h.Len())
	}

	h.Append(d2, v2)
	if h.Len() != 2 {
		t.Errorf("Append(d2, v2).Len() = %v want 2", h.Len())
	}

	if h.days[1] != d1 {
		t.Errorf("history[1].day = %v want %v", h.days[1], d1)
	}
	if h.days[0] != d2 {
		t.Errorf("history[0].day = %v want %v", h.days[0], d2)
	}
	if h.values[1] != v1 {
		t.Errorf("history[1].value = %v want %v", h.values[1], v1)
	}
	if h.values[0] != v2 {
		t.Errorf("history[0].value = %v want %v", h.values[0], v2)
	}
}

func TestAppend_LastWriteWins(t *testing.T) {
	h := new(History[float64])
	on := New(2024, 1, 1)
	h.Append(on, 1.0).Append(on, 2.0)
	if h.Len() != 1 {
		t.Fatalf("Len() = %d want 1", h.Len())
	}
	if v, _ := h.Get(on); v != 2.0 {
		t.Errorf("Get() = %v want 2", v)
	}
}

func TestValueAsOf(t *testing.T) {
	h := new(History[float64])
	h.Append(New(2024, 1, 10), 10).Append(New(2024, 1, 20), 20)

	testCases := []struct {
		name   string
		on     Date
		want   float64
		wantOk bool
	}{
		{"before first", New(2024, 1, 9), 0, false},
		{"exact first", New(2024, 1, 10), 10, true},
		{"between", New(2024, 1, 15), 10, true},
		{"exact last", New(2024, 1, 20), 20, true},
		{"after last", New(2025, 1, 1), 20, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := h.ValueAsOf(tc.on)
			if ok != tc.wantOk || got != tc.want {
				t.Errorf("ValueAsOf(%v) = %v, %v want %v, %v", tc.on, got, ok, tc.want, tc.wantOk)
			}
		})
	}
}

func TestLatestEarliestDelete(t *testing.T) {
	h := new(History[string])
	if d, v := h.Latest(); !d.IsZero() || v != "" {
		t.Errorf("Latest() of empty history = %v, %q", d, v)
	}
	h.Append(New(2024, 2, 1), "b").Append(New(2024, 1, 1), "a").Append(New(2024, 3, 1), "c")

	if d, v := h.Latest(); d != New(2024, 3, 1) || v != "c" {
		t.Errorf("Latest() = %v, %q", d, v)
	}
	if d, v := h.Earliest(); d != New(2024, 1, 1) || v != "a" {
		t.Errorf("Earliest() = %v, %q", d, v)
	}
	if !h.Delete(New(2024, 3, 1)) {
		t.Errorf("Delete() of an existing point = false")
	}
	if h.Delete(New(2024, 3, 1)) {
		t.Errorf("Delete() of a missing point = true")
	}
	if d, _ := h.Latest(); d != New(2024, 2, 1) {
		t.Errorf("Latest() after Delete = %v", d)
	}
}
