package models

import (
	"encoding/json"
	"testing"
)

func TestChecklistItem_UnmarshalJSON(t *testing.T) {
	cases := []struct {
		name      string
		in        string
		wantName  string
		wantDone  bool
		wantCheck int64
	}{
		{"canonical", `{"id":1,"name":"milk","itemCompletionStatus":true,"checklistId":4}`, "milk", true, 4},
		{"completed spelling", `{"id":1,"name":"milk","completed":true}`, "milk", true, 0},
		{"itemName spelling", `{"id":1,"itemName":"eggs"}`, "eggs", false, 0},
		{"name wins", `{"id":1,"name":"a","itemName":"b"}`, "a", false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var it ChecklistItem
			if err := json.Unmarshal([]byte(tc.in), &it); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if it.Name != tc.wantName || it.Completed != tc.wantDone || it.ChecklistID != tc.wantCheck {
				t.Errorf("got %+v", it)
			}
		})
	}
}

func TestChecklistItem_MarshalUsesAPIName(t *testing.T) {
	b, err := json.Marshal(ChecklistItem{ID: 2, Name: "x", Completed: true})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"id":2,"name":"x","itemCompletionStatus":true}` {
		t.Errorf("unexpected json %s", b)
	}
}

func TestProgress(t *testing.T) {
	items := []ChecklistItem{{Completed: true}, {}, {Completed: true}}
	p := ProgressOf(items)
	if p != (Progress{Completed: 2, Total: 3}) {
		t.Errorf("unexpected progress %+v", p)
	}
	if got := p.Percent(); got != 67 {
		t.Errorf("Percent() = %d; want 67", got)
	}
	if got := ProgressOf(nil).Percent(); got != 0 {
		t.Errorf("empty Percent() = %d; want 0", got)
	}
}
