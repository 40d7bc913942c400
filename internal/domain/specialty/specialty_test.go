package specialty

import "testing"

func TestAnalyzeKeywordMatch(t *testing.T) {
	got := Analyze("Fix SQL injection in the login endpoint", nil)

	want := map[Specialty]bool{Security: true, Backend: true, Database: true}
	for _, s := range got {
		delete(want, s)
	}
	if len(want) != 0 {
		t.Fatalf("missing specialties %v in %v", want, got)
	}
}

func TestAnalyzeFilePatterns(t *testing.T) {
	got := Analyze("update things", []string{
		"internal/store/migrations/0001_init.sql",
		"web/src/App.tsx",
		"Dockerfile",
	})

	want := map[Specialty]bool{Database: true, Frontend: true, DevOps: true}
	for _, s := range got {
		delete(want, s)
	}
	if len(want) != 0 {
		t.Fatalf("missing specialties %v in %v", want, got)
	}
}

func TestAnalyzeEmptyDefaultsToGeneral(t *testing.T) {
	got := Analyze("zzz", nil)
	if len(got) != 1 || got[0] != General {
		t.Fatalf("expected {general}, got %v", got)
	}
}

func TestAnalyzeNoDuplicates(t *testing.T) {
	got := Analyze("test the tests", []string{"a_test.go", "b_test.go"})
	seen := map[Specialty]bool{}
	for _, s := range got {
		if seen[s] {
			t.Fatalf("duplicate specialty %s in %v", s, got)
		}
		seen[s] = true
	}
}

func TestComplexityRange(t *testing.T) {
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	files := make([]string, 20)
	for i := range files {
		files[i] = "f.go"
	}

	c := Complexity("refactor architecture security migration breaking performance scale distributed "+string(long), files)
	if c != 1.0 {
		t.Fatalf("expected cap at 1.0, got %f", c)
	}

	if c := Complexity("", nil); c != 0 {
		t.Fatalf("expected 0 for empty task, got %f", c)
	}
}

func TestComplexityKeywordIncrement(t *testing.T) {
	base := Complexity("small fix", nil)
	kw := Complexity("small fix refactor", nil)
	if kw <= base {
		t.Fatalf("expected keyword to raise complexity: base=%f kw=%f", base, kw)
	}
}

func TestValid(t *testing.T) {
	if !Valid(Security) {
		t.Fatal("security should be valid")
	}
	if Valid(Specialty("quantum")) {
		t.Fatal("unknown specialty should be invalid")
	}
}
