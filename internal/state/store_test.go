package state

import (
	"os"
	"path/filepath"
	"testing"
)

type testDoc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestLoadAbsent(t *testing.T) {
	dir := t.TempDir()

	var doc testDoc
	found, err := Load(dir, GatesFile, &doc)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if found {
		t.Error("expected found=false for absent document")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	want := testDoc{Name: "run", Count: 6}
	if err := Save(dir, RunStateFile, &want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var got testDoc
	found, err := Load(dir, RunStateFile, &got)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Fatal("expected document to be found")
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestLoadCorruptTreatedAsAbsent(t *testing.T) {
	dir := t.TempDir()

	path := Path(dir, RunStateFile)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	var doc testDoc
	found, err := Load(dir, RunStateFile, &doc)
	if err != nil {
		t.Fatalf("Load on corrupt file should not error, got %v", err)
	}
	if found {
		t.Error("corrupt document must be treated as absent")
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()

	if err := Save(dir, SyncFile, &testDoc{Name: "sync"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, Dir))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != SyncFile {
			t.Errorf("unexpected file left behind: %s", e.Name())
		}
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()

	if err := Remove(dir, PlanFile); err != nil {
		t.Fatalf("Remove on absent document: %v", err)
	}

	if err := Save(dir, PlanFile, &testDoc{Name: "plan"}); err != nil {
		t.Fatal(err)
	}
	if err := Remove(dir, PlanFile); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	var doc testDoc
	found, err := Load(dir, PlanFile, &doc)
	if err != nil || found {
		t.Errorf("document still present after Remove (found=%v, err=%v)", found, err)
	}
}

func TestWithLockRuns(t *testing.T) {
	dir := t.TempDir()

	ran := false
	err := WithLock(dir, func() error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("WithLock: %v", err)
	}
	if !ran {
		t.Error("locked function did not run")
	}
}
