package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassToken(t *testing.T) {
	assert.Equal(t, "wp-image-42", ClassToken(42))
}

func TestKindValid(t *testing.T) {
	assert.True(t, KindAttachment.Valid())
	assert.False(t, Kind("product").Valid())
}

func TestFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://site.example/wp-content/uploads/2024/01/Cat.JPG", "cat.jpg"},
		{"https://site.example/img/cat.jpg?ver=3#x", "cat.jpg"},
		{"/relative/dog%20park.png", "dog park.png"},
		{"cat.jpg", "cat.jpg"},
		{"https://site.example/", ""},
		{"data:,", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FileName(tt.in), tt.in)
	}
}
