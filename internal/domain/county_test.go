package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCounty(t *testing.T) {
	cases := map[string]string{
		"LOS ANGELES":            "Los Angeles",
		"  del   norte ":         "Del Norte",
		"San Luis Obispo County": "San Luis Obispo",
		"placer":                 "Placer",
		"":                       "",
		"   ":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeCounty(in), "input %q", in)
	}
}

func TestSplitCounties(t *testing.T) {
	assert.Equal(t, []string{"Placer", "Nevada"}, SplitCounties("PLACER, nevada"))
	assert.Equal(t, []string{"Yuba"}, SplitCounties(" ,Yuba,"))
	assert.Empty(t, SplitCounties(""))
}

func TestCountySet_Lookup(t *testing.T) {
	set := NewCountySet([]string{"PLACER", "Los Angeles", "placer"})

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []string{"Los Angeles", "Placer"}, set.Names())

	got, ok := set.Lookup("los angeles county")
	assert.True(t, ok)
	assert.Equal(t, "Los Angeles", got)

	_, ok = set.Lookup("Unknown")
	assert.False(t, ok)
}

func TestCountySet_Infer(t *testing.T) {
	set := NewCountySet([]string{"San Luis Obispo", "San Diego", "Placer", "Nevada", "Lake"})

	t.Run("embedded name", func(t *testing.T) {
		got, ok := set.Infer("SAN LUIS OBISPO POLY")
		assert.True(t, ok)
		assert.Equal(t, "San Luis Obispo", got)
	})

	t.Run("earliest match wins", func(t *testing.T) {
		got, ok := set.Infer("NEVADA CITY NEAR PLACER LINE")
		assert.True(t, ok)
		assert.Equal(t, "Nevada", got)
	})

	t.Run("word boundary required", func(t *testing.T) {
		_, ok := set.Infer("PLACERVILLE")
		assert.False(t, ok)
	})

	t.Run("no match", func(t *testing.T) {
		_, ok := set.Infer("BLUE CANYON")
		assert.False(t, ok)
	})
}
