package session

import "testing"

func TestGetCreatesNewSession(t *testing.T) {
	st := NewStore()
	sess := st.Get(100)
	if sess.Stage != StageNew {
		t.Fatalf("fresh session stage = %v, want %v", sess.Stage, StageNew)
	}
	if sess.DisplayName != "" || sess.AwaitingQuestion {
		t.Fatalf("fresh session carries data: %+v", sess)
	}
	if st.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", st.Len())
	}
}

func TestDisplayNameSetOnce(t *testing.T) {
	st := NewStore()
	if !st.SetDisplayName(1, "Ivan Petrov") {
		t.Fatal("first SetDisplayName should succeed")
	}
	if st.SetDisplayName(1, "Someone Else") {
		t.Fatal("second SetDisplayName should be refused")
	}
	if got := st.Get(1).DisplayName; got != "Ivan Petrov" {
		t.Fatalf("DisplayName = %q, want %q", got, "Ivan Petrov")
	}
}

func TestForwardTransitions(t *testing.T) {
	st := NewStore()
	steps := []Stage{StageNameCollected, StageAwaitingLargeFileLink, StageSubmitted}
	for _, next := range steps {
		if !st.SetStage(7, next) {
			t.Fatalf("transition to %v refused", next)
		}
	}
	if got := st.Get(7).Stage; got != StageSubmitted {
		t.Fatalf("stage = %v, want %v", got, StageSubmitted)
	}
}

func TestStageNeverRegresses(t *testing.T) {
	cases := []struct {
		walk []Stage
		back Stage
	}{
		{walk: []Stage{StageNameCollected}, back: StageNew},
		{walk: []Stage{StageNameCollected, StageSubmitted}, back: StageNew},
		{walk: []Stage{StageNameCollected, StageAwaitingLargeFileLink}, back: StageNew},
		{walk: []Stage{StageNameCollected, StageAwaitingLargeFileLink}, back: StageNameCollected},
	}
	for i, tc := range cases {
		store := NewStore()
		for _, step := range tc.walk {
			if !store.SetStage(1, step) {
				t.Fatalf("case %d: setup transition to %v refused", i, step)
			}
		}
		if store.SetStage(1, tc.back) {
			t.Fatalf("case %d: regression to %v was allowed", i, tc.back)
		}
		if got := store.Get(1).Stage; got != tc.walk[len(tc.walk)-1] {
			t.Fatalf("case %d: stage mutated to %v after refused transition", i, got)
		}
	}
}

func TestSubmittedLinkShortCircuit(t *testing.T) {
	st := NewStore()
	st.SetStage(1, StageNameCollected)
	st.SetStage(1, StageSubmitted)
	if !st.SetStage(1, StageAwaitingLargeFileLink) {
		t.Fatal("Submitted -> AwaitingLargeFileLink should be allowed for oversized re-submissions")
	}
	if !st.SetStage(1, StageSubmitted) {
		t.Fatal("AwaitingLargeFileLink -> Submitted should be allowed")
	}
}

func TestResubmissionKeepsSubmitted(t *testing.T) {
	st := NewStore()
	st.SetStage(1, StageNameCollected)
	st.SetStage(1, StageSubmitted)
	if !st.SetStage(1, StageSubmitted) {
		t.Fatal("same-stage write should be allowed")
	}
}

func TestAwaitingQuestionIndependentOfStage(t *testing.T) {
	st := NewStore()
	st.SetStage(1, StageNameCollected)
	st.SetAwaitingQuestion(1, true)
	sess := st.Get(1)
	if !sess.AwaitingQuestion {
		t.Fatal("AwaitingQuestion not set")
	}
	if sess.Stage != StageNameCollected {
		t.Fatalf("stage changed to %v when toggling question flag", sess.Stage)
	}
	st.SetAwaitingQuestion(1, false)
	if st.Get(1).AwaitingQuestion {
		t.Fatal("AwaitingQuestion not cleared")
	}
}
