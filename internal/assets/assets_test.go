package assets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLimits_Check(t *testing.T) {
	t.Parallel()

	limits := Limits{
		MaxSizeBytes:        10,
		AllowedContentTypes: []string{"image/png", "image/jpeg"},
	}
	body := strings.NewReader("x")

	tests := []struct {
		name    string
		file    *File
		wantErr bool
	}{
		{name: "ok", file: &File{ContentType: "image/png", Size: 5, Body: body}},
		{name: "ok with params", file: &File{ContentType: "Image/JPEG; q=1", Size: 10, Body: body}},
		{name: "nil", file: nil, wantErr: true},
		{name: "no body", file: &File{ContentType: "image/png", Size: 5}, wantErr: true},
		{name: "empty", file: &File{ContentType: "image/png", Size: 0, Body: body}, wantErr: true},
		{name: "too big", file: &File{ContentType: "image/png", Size: 11, Body: body}, wantErr: true},
		{name: "wrong type", file: &File{ContentType: "application/pdf", Size: 5, Body: body}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := limits.Check(tt.file)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidFile)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLimits_Check_NoRestrictions(t *testing.T) {
	t.Parallel()

	err := Limits{}.Check(&File{ContentType: "anything", Size: 1 << 30, Body: strings.NewReader("")})
	require.NoError(t, err)
}

func TestExt(t *testing.T) {
	t.Parallel()

	require.Equal(t, ".jpg", Ext("image/jpeg"))
	require.Equal(t, ".png", Ext("IMAGE/PNG"))
	require.Equal(t, ".webp", Ext("image/webp"))
	require.Equal(t, ".gif", Ext("image/gif"))
	require.Equal(t, "", Ext("text/plain"))
}
