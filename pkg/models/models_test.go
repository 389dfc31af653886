package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsdk/pkg/errs"
)

func TestMergePartially(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	u := &User{
		ID:        "jc",
		Name:      "Jc",
		Role:      RoleUser,
		Online:    true,
		ExtraData: map[string]any{"color": "red"},
		CreatedAt: created,
	}

	u.MergePartially(&User{
		ID:             "jc",
		Image:          "https://example.com/jc.png",
		BlockedUserIDs: []string{"spammer"},
		ExtraData:      map[string]any{"team": "blue"},
	})

	assert.Equal(t, "Jc", u.Name)
	assert.Equal(t, "https://example.com/jc.png", u.Image)
	assert.False(t, u.Online)
	assert.Equal(t, []string{"spammer"}, u.BlockedUserIDs)
	assert.Equal(t, map[string]any{"color": "red", "team": "blue"}, u.ExtraData)
	assert.Equal(t, created, u.CreatedAt)
}

func TestMergePartiallyIgnoresOtherUser(t *testing.T) {
	u := &User{ID: "jc", Name: "Jc"}

	u.MergePartially(&User{ID: "other", Name: "Other"})

	assert.Equal(t, "Jc", u.Name)
}

func TestCloneIsDeep(t *testing.T) {
	u := &User{ID: "jc", BlockedUserIDs: []string{"a"}, ExtraData: map[string]any{"k": 1}}

	c := u.Clone()
	c.BlockedUserIDs[0] = "b"
	c.ExtraData["k"] = 2

	assert.Equal(t, "a", u.BlockedUserIDs[0])
	assert.Equal(t, 1, u.ExtraData["k"])
}

func TestSplitCID(t *testing.T) {
	typ, id, ok := SplitCID("messaging:general")
	require.True(t, ok)
	assert.Equal(t, "messaging", typ)
	assert.Equal(t, "general", id)

	_, _, ok = SplitCID("messaging")
	assert.False(t, ok)

	assert.Equal(t, "messaging:general", CID("messaging", "general"))
}

func TestValidateFileType(t *testing.T) {
	tests := []struct {
		name       string
		fileName   string
		mimeType   string
		imagesOnly bool
		wantErr    bool
	}{
		{"png image", "cat.png", "image/png", true, false},
		{"uppercase extension", "CAT.JPG", "image/jpeg", true, false},
		{"mismatched extension", "cat.png", "image/jpeg", true, true},
		{"pdf as image", "doc.pdf", "application/pdf", true, true},
		{"pdf as file", "doc.pdf", "application/pdf", false, false},
		{"unknown extension as file", "data.bin", "application/octet-stream", false, false},
		{"no extension", "README", "text/plain", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFileType(tt.fileName, tt.mimeType, tt.imagesOnly)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errs.ErrInvalidAttachment, errs.CodeOf(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateFileSize(t *testing.T) {
	assert.NoError(t, ValidateFileSize(1024, MaxImageSize))
	assert.Error(t, ValidateFileSize(0, MaxImageSize))
	assert.Error(t, ValidateFileSize(MaxImageSize+1, MaxImageSize))
}
