package biz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/ieum/pkg/utils/errors"
)

func TestLookupCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"history", CategoryHistory, true},
		{" IEUM ", CategoryHistory, true},
		{"custom", CategoryStyle, true},
		{"Style", CategoryStyle, true},
		{"external", CategoryReference, true},
		{"minutes", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := LookupCategory(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestUploadCategory(t *testing.T) {
	assert.Equal(t, CategoryHistory, UploadCategory("ieum"))
	assert.Equal(t, CategoryStyle, UploadCategory("style"))
	assert.Equal(t, CategoryReference, UploadCategory("whatever"))
	assert.Equal(t, CategoryReference, UploadCategory(""))
}

func TestCheckExtension(t *testing.T) {
	tests := []struct {
		category Category
		name     string
		ok       bool
	}{
		{CategoryHistory, "0301.PDF", true},
		{CategoryHistory, "0301.docx", true},
		{CategoryHistory, "0301.txt", false},
		{CategoryStyle, "form.docx", true},
		{CategoryStyle, "form.pdf", false},
		{CategoryReference, "guide.txt", true},
		{CategoryReference, "guide", false},
		{CategoryReference, "image.png", false},
	}
	for _, tt := range tests {
		err := CheckExtension(tt.category, tt.name)
		if tt.ok {
			assert.NoError(t, err, tt.name)
		} else {
			assert.ErrorIs(t, err, errors.ErrUnsupportedFileType, tt.name)
		}
	}
}
