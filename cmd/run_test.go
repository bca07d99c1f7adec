package cmd

import (
	"reflect"
	"testing"

	"github.com/specdriven/sdd/internal/models"
)

func TestParseFileChanges(t *testing.T) {
	cases := []struct {
		name    string
		in      []string
		want    []models.FileChange
		wantErr bool
	}{
		{
			name: "bare path defaults to modified",
			in:   []string{"api/login.go"},
			want: []models.FileChange{{Path: "api/login.go", Action: models.FileModified}},
		},
		{
			name: "explicit actions",
			in:   []string{"a.go:created", "b.go:deleted"},
			want: []models.FileChange{
				{Path: "a.go", Action: models.FileCreated},
				{Path: "b.go", Action: models.FileDeleted},
			},
		},
		{
			name:    "unknown action",
			in:      []string{"a.go:renamed"},
			wantErr: true,
		},
		{
			name:    "empty path",
			in:      []string{":created"},
			wantErr: true,
		},
		{
			name: "none",
			in:   nil,
			want: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseFileChanges(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestGateArgs(t *testing.T) {
	cases := map[string]models.GateID{
		"env":  models.GateEnv,
		"plan": models.GatePlan,
		"spec": models.GateSpec,
		"a":    models.GateEnv,
		"c":    models.GateSpec,
	}
	for arg, want := range cases {
		if got := gateArgs[arg]; got != want {
			t.Errorf("gateArgs[%q] = %v, want %v", arg, got, want)
		}
	}
	if _, ok := gateArgs["d"]; ok {
		t.Error("unexpected gate arg accepted")
	}
}
