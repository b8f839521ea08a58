// internal/types/models_test.go
package types

import (
	"encoding/json"
	"testing"
)

func TestSummaryKeepsInsertionOrder(t *testing.T) {
	s := NewSummary("organism", "human", "length", "120")
	s.Set("gi", "1")
	s.Set("organism", "mouse")

	keys := s.Keys()
	want := []string{"organism", "length", "gi"}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(keys))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("key %d = %s, want %s", i, keys[i], want[i])
		}
	}
	if v, _ := s.Get("organism"); v != "mouse" {
		t.Errorf("expected overwritten value, got %s", v)
	}
}

func TestRecordState(t *testing.T) {
	r := &Record{Accession: "P12345"}
	if r.State() != StateAccessionOnly {
		t.Errorf("expected accession-only, got %d", r.State())
	}
	r.Summary = NewSummary("length", "10")
	if r.State() != StatePartial {
		t.Errorf("expected partial, got %d", r.State())
	}
	r.Full = &FullRecord{ID: "P12345"}
	if r.State() != StateFull {
		t.Errorf("expected full, got %d", r.State())
	}
}

func TestNewFailureHash(t *testing.T) {
	a := NewFailure("P12345", "Bad Request")
	b := NewFailure("P12345", "Bad Request")
	c := NewFailure("P12345", "Not Found")
	if a.Hash != b.Hash {
		t.Error("identical failures should hash equal")
	}
	if a.Hash == c.Hash {
		t.Error("different messages should hash differently")
	}
	if len(a.Hash) != 32 {
		t.Errorf("expected md5 hex, got %s", a.Hash)
	}
}

func TestResultMerge(t *testing.T) {
	var r Result
	r.Merge(Result{Records: []*Record{{Accession: "A"}}, Renamed: map[string]string{"1": "A"}})
	r.Merge(Result{Failures: []Failure{NewFailure("x", "y")}})
	if len(r.Records) != 1 || len(r.Failures) != 1 || r.Renamed["1"] != "A" {
		t.Errorf("unexpected merge result: %+v", r)
	}
}

func TestSummaryJSONKeepsOrder(t *testing.T) {
	s := NewSummary("organism", "Homo sapiens", "length", "393", "gi", "1234")
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `[["organism","Homo sapiens"],["length","393"],["gi","1234"]]` {
		t.Errorf("unexpected encoding %s", data)
	}

	var back Summary
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Equal(s) {
		t.Errorf("round trip changed summary: %v", back.Keys())
	}
}

func TestRecordJSONOmitsEmptySummary(t *testing.T) {
	data, err := json.Marshal(&Record{Accession: "P12345", Database: DBUniProt, Kind: KindProtein})
	if err != nil {
		t.Fatal(err)
	}
	var back Record
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Summary != nil || back.State() != StateAccessionOnly {
		t.Errorf("expected accession-only record, got %+v", back)
	}
}
