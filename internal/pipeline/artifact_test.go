package pipeline

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/license-delivery/internal/types"
)

func TestArtifactNamer_Build(t *testing.T) {
	window := types.DateRange{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name     string
		dir      string
		file     string
		wantDir  string
		wantFile string
		wantErr  bool
	}{
		{
			name:     "default layout",
			dir:      "zips/{{.ParentKey}}/{{.ChildKey}}",
			file:     "{{.Customer}}_{{.DateRange}}.zip",
			wantDir:  filepath.Join("zips", "CAM-1", "CAM-11"),
			wantFile: "Acme_Widgets_2024-01-01_2024-01-31.zip",
		},
		{
			name:     "dir is cleaned",
			dir:      "/data//out/{{.Customer}}/",
			file:     "{{.ChildKey}}.csv",
			wantDir:  filepath.Clean("/data/out/Acme_Widgets"),
			wantFile: "CAM-11.csv",
		},
		{
			name:    "name with separator rejected",
			dir:     "zips",
			file:    "{{.ParentKey}}/{{.ChildKey}}.zip",
			wantErr: true,
		},
		{
			name:    "empty name rejected",
			dir:     "zips",
			file:    "  ",
			wantErr: true,
		},
		{
			name:    "unknown field",
			dir:     "zips",
			file:    "{{.Market}}.zip",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			namer, err := NewArtifactNamer(tt.dir, tt.file)
			require.NoError(t, err)

			got, err := namer.Build("Acme_Widgets", "CAM-1", "CAM-11", window)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDir, got.Dir)
			assert.Equal(t, tt.wantFile, got.FileName)
			assert.Equal(t, filepath.Join(tt.wantDir, tt.wantFile), got.Path())
		})
	}
}

func TestNewArtifactNamer_InvalidTemplate(t *testing.T) {
	_, err := NewArtifactNamer("{{.ParentKey", "x.zip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dir template")

	_, err = NewArtifactNamer("zips", "{{if}}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name template")
}
