package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGSParse(t *testing.T) {

	tc := func(in string, expBucket, expObject string) {
		t.Helper()
		b, o := gsparse(in)
		assert.Equal(t, expBucket, b)
		assert.Equal(t, expObject, o)
	}
	tc("sdgfdsf", "", "")
	tc("gs://", "", "")
	tc("gs://a", "", "")
	tc("gs://a/", "", "")
	tc("gs://a/b", "a", "b")
	tc("gs://a/b/c", "a", "b/c")
	tc("gs://a/b/", "a", "b")
	tc("gs://a/b/c/", "a", "b/c")

}

func TestParseNames(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, parseNames("a,b", []string{"x.tif", "y.tif"}))
	assert.Equal(t, []string{"x", "y"}, parseNames("", []string{"/data/x.tif", "gs://bucket/y.tif"}))
}

func TestParseBands(t *testing.T) {
	b, err := parseBands("")
	assert.NoError(t, err)
	assert.Nil(t, b)

	b, err = parseBands("1, 2,3")
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, b)

	_, err = parseBands("1,x")
	assert.Error(t, err)
}
