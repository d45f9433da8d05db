package templates

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/interactivity/internal/config"
	ierrors "github.com/vango-dev/interactivity/internal/errors"
)

func TestGet(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"minimal", false},
		{"lightbox", false},
		{"nonexistent", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Get(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ierrors.New(ierrors.CodeTemplateNotFound)) {
					t.Errorf("Get() error = %v, want E145", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tmpl.Name != tt.name {
				t.Errorf("Name = %q, want %q", tmpl.Name, tt.name)
			}
		})
	}
}

func TestList(t *testing.T) {
	if diff := cmp.Diff([]string{"lightbox", "minimal"}, List()); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestCreate(t *testing.T) {
	for _, name := range List() {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			tmpl, _ := Get(name)
			cfg := Config{ProjectName: "Site", Prefix: "my", Port: 4100}
			if err := tmpl.Create(dir, cfg); err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			for _, p := range tmpl.Paths() {
				data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(p)))
				if err != nil {
					t.Fatalf("missing %s: %v", p, err)
				}
				if strings.Contains(string(data), "{{") {
					t.Errorf("%s still holds template actions", p)
				}
				if strings.HasSuffix(p, ".html") && !strings.Contains(string(data), "data-my-interactive") {
					t.Errorf("%s does not use the prefix", p)
				}
			}

			loaded, err := config.Load(dir)
			if err != nil {
				t.Fatalf("config.Load() error = %v", err)
			}
			if loaded.Prefix != "my" || loaded.Dev.Port != 4100 {
				t.Errorf("config = prefix %q port %d", loaded.Prefix, loaded.Dev.Port)
			}
			if err := loaded.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}
