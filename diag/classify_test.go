package diag

import (
	"testing"

	"github.com/justapithecus/msival/types"
)

func TestClassify_Table(t *testing.T) {
	tests := []struct {
		codes []int
		want  types.Category
	}{
		{[]int{1101, 1309, 1319}, types.CategoryOpenError},
		{[]int{1301, 1304, 1306, 1310, 1312, 1315, 1317, 1318}, types.CategoryWriteError},
		{[]int{1303}, types.CategoryPermissionDenied},
		{[]int{1305, 1316}, types.CategoryReadError},
		{[]int{1308, 1311, 1313, 1314}, types.CategoryObjectNotFound},
		{[]int{1320}, types.CategoryInvalidData},
	}

	for _, tt := range tests {
		for _, code := range tt.codes {
			rec := types.NewErrorRecord(code, "C:\\target", "extra")
			cat, resource := Classify(rec)
			if cat != tt.want {
				t.Errorf("Classify(%d) category = %v, want %v", code, cat, tt.want)
			}
			if resource != "C:\\target" {
				t.Errorf("Classify(%d) resource = %q, want field 2", code, resource)
			}
		}
	}
}

func TestClassify_UnlistedCodeKeepsResource(t *testing.T) {
	cat, resource := Classify(types.NewErrorRecord(2228, "Property"))
	if cat != types.CategoryUnspecified {
		t.Errorf("category = %v, want Unspecified", cat)
	}
	if resource != "Property" {
		t.Errorf("resource = %q, want Property", resource)
	}
}

func TestClassify_OutsideBand(t *testing.T) {
	for _, code := range []int{-5, 0, 1, 999, 25000, 25001, 1 << 20} {
		cat, resource := Classify(types.NewErrorRecord(code, "r", "r", "r", "r", "r"))
		if cat != types.CategoryUnspecified || resource != "" {
			t.Errorf("Classify(%d) = (%v, %q), want (Unspecified, \"\")", code, cat, resource)
		}
	}
}

func TestClassify_BandEdges(t *testing.T) {
	cat, resource := Classify(types.NewErrorRecord(1000, "edge"))
	if cat != types.CategoryUnspecified || resource != "edge" {
		t.Errorf("Classify(1000) = (%v, %q), want (Unspecified, edge)", cat, resource)
	}
	cat, resource = Classify(types.NewErrorRecord(24999, "edge"))
	if cat != types.CategoryUnspecified || resource != "edge" {
		t.Errorf("Classify(24999) = (%v, %q), want (Unspecified, edge)", cat, resource)
	}
}

func TestClassify_TooFewFields(t *testing.T) {
	tests := []struct {
		name string
		rec  *types.Record
	}{
		{"nil", nil},
		{"template only", types.NewRecord("hello")},
		{"code only", types.NewErrorRecord(1305)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, resource := Classify(tt.rec)
			if cat != types.CategoryUnspecified || resource != "" {
				t.Errorf("Classify = (%v, %q), want (Unspecified, \"\")", cat, resource)
			}
		})
	}
}

func TestClassify_AssemblyCodesUseField6(t *testing.T) {
	for code := 1935; code <= 1938; code++ {
		rec := types.NewErrorRecord(code, "field2", "f3", "f4", "f5", "assembly-name")
		cat, resource := Classify(rec)
		if cat != types.CategoryInvalidData {
			t.Errorf("Classify(%d) category = %v, want InvalidData", code, cat)
		}
		if resource != "assembly-name" {
			t.Errorf("Classify(%d) resource = %q, want field 6", code, resource)
		}
	}
}

func TestClassify_AssemblyCodesWithFewFields(t *testing.T) {
	// Five fields: the special case does not apply and 1935 is not in the table.
	rec := types.NewErrorRecord(1935, "field2", "f3", "f4", "f5")
	cat, resource := Classify(rec)
	if cat != types.CategoryUnspecified {
		t.Errorf("category = %v, want Unspecified", cat)
	}
	if resource != "field2" {
		t.Errorf("resource = %q, want field2", resource)
	}
}

func TestClassify_StringCode(t *testing.T) {
	rec := types.NewRecord("", types.Str("1303"), types.Str("C:\\locked"))
	cat, resource := Classify(rec)
	if cat != types.CategoryPermissionDenied || resource != "C:\\locked" {
		t.Errorf("Classify = (%v, %q), want (PermissionDenied, C:\\locked)", cat, resource)
	}
}

func TestClassify_Idempotent(t *testing.T) {
	rec := types.NewErrorRecord(1316, "file.cab")
	c1, r1 := Classify(rec)
	c2, r2 := Classify(rec)
	if c1 != c2 || r1 != r2 {
		t.Errorf("Classify not idempotent: (%v,%q) vs (%v,%q)", c1, r1, c2, r2)
	}
}
