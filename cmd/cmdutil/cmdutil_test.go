package cmdutil

import (
	"flag"
	"testing"
)

func TestRequired(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   bool
	}{
		{"none", nil, true},
		{"all set", []string{"a.db", "b.db"}, true},
		{"one empty", []string{"a.db", ""}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := flag.NewFlagSet("test", flag.ContinueOnError)
			usage := 0
			f.Usage = func() { usage++ }

			if got := Required(f, tt.values...); got != tt.want {
				t.Errorf("Required() = %v, want %v", got, tt.want)
			}
			if wantUsage := map[bool]int{true: 0, false: 1}[tt.want]; usage != wantUsage {
				t.Errorf("usage printed %d times, want %d", usage, wantUsage)
			}
		})
	}
}

func TestJournalFlag(t *testing.T) {
	var path string
	f := flag.NewFlagSet("test", flag.ContinueOnError)
	JournalFlag(f, &path)
	if err := f.Parse([]string{"-db", "runs.db"}); err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if path != "runs.db" {
		t.Errorf("path = %q", path)
	}
}
