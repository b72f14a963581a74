package picklist_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentstation/casesync/pkg/picklist"
)

func TestMap(t *testing.T) {
	labels := []string{"French", "German"}

	tests := []struct {
		name   string
		values []string
		labels []string
		want   []string
	}{
		{"fallback on no token", []string{"???"}, labels, []string{"Unknown"}},
		{"leading word match", []string{"French Canadian"}, labels, []string{"French"}},
		{"case sensitive", []string{"french"}, labels, []string{"Unknown"}},
		{"order and duplicates kept", []string{"German", "French", "German-born"}, labels, []string{"German", "French", "German"}},
		{"unmatched values dropped", []string{"Spanish", "German"}, labels, []string{"German"}},
		{"first label wins", []string{"Af"}, []string{"African", "African American"}, []string{"African"}},
		{"substring match", []string{"American"}, []string{"African American", "American Indian"}, []string{"African American"}},
		{"no labels", []string{"French"}, nil, []string{"Unknown"}},
		{"no values", nil, labels, []string{"Unknown"}},
		{"unknown label matches placeholder", []string{"???"}, []string{"Unknown", "French"}, []string{"Unknown"}},
		{"unicode word", []string{"Ñandú tribe"}, []string{"Ñandú"}, []string{"Ñandú"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, picklist.Map(tt.values, tt.labels))
		})
	}
}

func TestToken(t *testing.T) {
	assert.Equal(t, "French", picklist.Token("French Canadian"))
	assert.Equal(t, "Unknown", picklist.Token(" French"))
	assert.Equal(t, "Unknown", picklist.Token(""))
	assert.Equal(t, "Afro_Latin", picklist.Token("Afro_Latin/Other"))
}

func TestNormalize(t *testing.T) {
	labels := []string{"French", "German", "Hispanic"}

	got, ok := picklist.Normalize([]string{"Hispanic", "French Canadian"}, labels)
	assert.True(t, ok)
	assert.Equal(t, "Hispanic;French", got)

	got, ok = picklist.Normalize([]any{"German", 7}, labels)
	assert.True(t, ok)
	assert.Equal(t, "German", got)

	got, ok = picklist.Normalize("German; French", labels)
	assert.True(t, ok)
	assert.Equal(t, "German;French", got)

	_, ok = picklist.Normalize("", labels)
	assert.False(t, ok)
	_, ok = picklist.Normalize(nil, labels)
	assert.False(t, ok)
}
