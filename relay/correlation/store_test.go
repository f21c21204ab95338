package correlation

import "testing"

func TestPutGet(t *testing.T) {
	st, err := NewStore(16)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	st.Put(42, 1001, CategoryQuestion)

	entry, ok := st.Get(42)
	if !ok {
		t.Fatal("entry not found")
	}
	if entry.UserID != 1001 || entry.Category != CategoryQuestion {
		t.Fatalf("entry = %+v", entry)
	}
}

func TestGetMiss(t *testing.T) {
	st, _ := NewStore(16)
	if _, ok := st.Get(7); ok {
		t.Fatal("expected miss for unknown message id")
	}
}

func TestResolutionIsIdempotent(t *testing.T) {
	st, _ := NewStore(16)
	st.Put(42, 1001, CategorySubmission)

	first, _ := st.Get(42)
	second, _ := st.Get(42)
	if first != second {
		t.Fatalf("repeated resolution differs: %+v vs %+v", first, second)
	}
}

func TestFirstWriteWins(t *testing.T) {
	st, _ := NewStore(16)
	st.Put(42, 1001, CategoryQuestion)
	st.Put(42, 2002, CategorySubmission)

	entry, _ := st.Get(42)
	if entry.UserID != 1001 || entry.Category != CategoryQuestion {
		t.Fatalf("entry was overwritten: %+v", entry)
	}
}

func TestBoundedRetention(t *testing.T) {
	st, _ := NewStore(4)
	for id := 1; id <= 8; id++ {
		st.Put(id, int64(id), CategorySubmission)
	}
	if st.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", st.Len())
	}
	if _, ok := st.Get(1); ok {
		t.Fatal("oldest entry should have been evicted")
	}
	if _, ok := st.Get(8); !ok {
		t.Fatal("newest entry should still resolve")
	}
}

func TestCategoryString(t *testing.T) {
	if CategorySubmission.String() != "submission" || CategoryQuestion.String() != "question" {
		t.Fatalf("unexpected category names: %s, %s", CategorySubmission, CategoryQuestion)
	}
}
