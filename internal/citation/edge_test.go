package citation

import "testing"

func TestEdge_Validate(t *testing.T) {
	tests := []struct {
		name    string
		edge    Edge
		wantErr error
	}{
		{name: "valid edge", edge: Edge{Source: "W1", Target: "W2"}},
		{name: "empty source", edge: Edge{Target: "W2"}, wantErr: ErrEmptySource},
		{name: "empty target", edge: Edge{Source: "W1"}, wantErr: ErrEmptyTarget},
		{name: "self edge", edge: Edge{Source: "W1", Target: "W1"}, wantErr: ErrSelfEdge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.edge.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDetectDangling(t *testing.T) {
	known := map[string]bool{"A": true, "B": true}
	edges := []Edge{
		{Source: "A", Target: "B"},
		{Source: "A", Target: "X"},
		{Source: "Y", Target: "B"},
		{Source: "Y", Target: "Z"},
	}

	dangling, resolved := DetectDangling(edges, known)

	if len(resolved) != 1 || resolved[0] != (Edge{Source: "A", Target: "B"}) {
		t.Errorf("resolved = %v, want [A->B]", resolved)
	}
	wantReasons := []string{"missing_target", "missing_source", "missing_both"}
	if len(dangling) != len(wantReasons) {
		t.Fatalf("len(dangling) = %d, want %d", len(dangling), len(wantReasons))
	}
	for i, want := range wantReasons {
		if dangling[i].Reason != want {
			t.Errorf("dangling[%d].Reason = %q, want %q", i, dangling[i].Reason, want)
		}
	}
}

func TestFindDuplicates(t *testing.T) {
	edges := []Edge{
		{Source: "B", Target: "C"},
		{Source: "A", Target: "B"},
		{Source: "B", Target: "C"},
		{Source: "A", Target: "B"},
		{Source: "A", Target: "B"},
		{Source: "A", Target: "C"},
	}

	dups := FindDuplicates(edges)
	if len(dups) != 2 {
		t.Fatalf("len(dups) = %d, want 2", len(dups))
	}
	if dups[0].Source != "A" || dups[0].Count != 3 {
		t.Errorf("dups[0] = %+v, want A->B x3", dups[0])
	}
	if dups[1].Source != "B" || dups[1].Count != 2 {
		t.Errorf("dups[1] = %+v, want B->C x2", dups[1])
	}
}
