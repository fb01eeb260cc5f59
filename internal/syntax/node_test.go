// # internal/syntax/node_test.go
package syntax

import "testing"

func TestTextRangeExtend(t *testing.T) {
	a := TextRange{Start: 10, End: 20, Line: 2, Column: 1}
	b := TextRange{Start: 5, End: 15, Line: 1, Column: 3}

	merged := a.Extend(b)
	if merged.Start != 5 || merged.End != 20 {
		t.Errorf("Extend = [%d, %d), want [5, 20)", merged.Start, merged.End)
	}
	if merged.Line != 1 || merged.Column != 3 {
		t.Errorf("Extend start position = %d:%d, want 1:3", merged.Line, merged.Column)
	}

	same := a.Extend(a)
	if same != a {
		t.Errorf("self-extend changed the range: %+v", same)
	}
}

func TestEnclosingOfKind(t *testing.T) {
	module := &Node{Kind: KindModule}
	class := &Node{Kind: KindClass, Parent: module}
	suite := &Node{Kind: KindSuite, Parent: class}
	fn := &Node{Kind: KindFunction, Parent: suite}
	name := &Node{Kind: KindName, Parent: fn}

	if got := name.EnclosingOfKind(KindFunction); got != fn {
		t.Errorf("expected enclosing function, got %v", got)
	}
	if got := name.EnclosingOfKind(KindClass, KindFunction); got != fn {
		t.Errorf("expected nearest match to win, got %v", got)
	}
	if got := fn.EnclosingOfKind(KindClass); got != class {
		t.Errorf("expected enclosing class, got %v", got)
	}
	if got := module.EnclosingOfKind(KindClass); got != nil {
		t.Errorf("expected nil above module, got %v", got)
	}
}

func TestContains(t *testing.T) {
	outer := &Node{Range: TextRange{Start: 0, End: 100}}
	inner := &Node{Range: TextRange{Start: 10, End: 20}}
	outside := &Node{Range: TextRange{Start: 90, End: 110}}

	if !outer.Contains(inner) {
		t.Error("expected outer to contain inner")
	}
	if outer.Contains(outside) {
		t.Error("expected range past the end not to be contained")
	}
}

func TestIsStatement(t *testing.T) {
	cases := []struct {
		kind NodeKind
		want bool
	}{
		{KindIf, true},
		{KindReturn, true},
		{KindImport, true},
		{KindCall, false},
		{KindName, false},
	}
	for _, tc := range cases {
		if got := tc.kind.IsStatement(); got != tc.want {
			t.Errorf("IsStatement(%d) = %v, want %v", tc.kind, got, tc.want)
		}
	}
}
