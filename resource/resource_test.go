package resource_test

import (
	"testing"

	"github.com/loaderkit/go-dataload/resource"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEquivalentSpellings(t *testing.T) {
	want := resource.Locator("assets/data/x.json")

	inputs := []string{
		"assets/data/x.json",
		"/assets/data/x.json",
		"./assets/data/x.json",
		"//assets/data/x.json",
		"/./assets/data/x.json",
		" assets/data/x.json ",
		"assets//data/x.json",
		"assets/./data/x.json",
	}
	for _, in := range inputs {
		require.Equal(t, want, resource.Normalize(in), "input %q", in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"assets/data/x.json",
		"/a/b/../c",
		"./x",
		"",
		"/",
		".",
		"a b/c.txt",
	}
	for _, in := range inputs {
		once := resource.Normalize(in)
		require.Equal(t, once, resource.Normalize(string(once)), "input %q", in)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	require.Equal(t, resource.Locator(""), resource.Normalize(""))
	require.Equal(t, resource.Locator(""), resource.Normalize("/"))
	require.Equal(t, resource.Locator(""), resource.Normalize("./"))
	require.Equal(t, resource.Locator(""), resource.Normalize("."))
}

func TestKindString(t *testing.T) {
	require.Equal(t, "json", resource.KindJSON.String())
	require.Equal(t, "text", resource.KindText.String())
	require.Equal(t, "blob", resource.KindBlob.String())
	require.Equal(t, "bytes", resource.KindBytes.String())
	require.Equal(t, "invalid", resource.KindInvalid.String())
}

func TestKindBinary(t *testing.T) {
	require.False(t, resource.KindJSON.Binary())
	require.False(t, resource.KindText.Binary())
	require.True(t, resource.KindBlob.Binary())
	require.True(t, resource.KindBytes.Binary())
}
