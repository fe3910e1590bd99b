package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParams_Order(t *testing.T) {
	p := NewParams("module", "account", "action", "txlist")
	p.Set("startblock", 0).Set("endblock", uint64(99999999)).Set("sort", "desc")
	p.Set("action", "tokentx")

	assert.Equal(t, "module=account&action=tokentx&startblock=0&endblock=99999999&sort=desc", p.Encode())
	assert.Equal(t, 5, p.Len())

	v, ok := p.Get("endblock")
	assert.True(t, ok)
	assert.Equal(t, "99999999", v)
}

func TestParams_Escaping(t *testing.T) {
	p := NewParams("q", "a b&c", "ratio", 0.5)
	assert.Equal(t, "q=a+b%26c&ratio=0.5", p.Encode())
}

func TestParams_Empty(t *testing.T) {
	var p Params
	assert.Equal(t, "", p.Encode())
	p.Set("k", "v")
	assert.Equal(t, "k=v", p.Encode())
}

func TestCredentials_Resolve(t *testing.T) {
	creds := NewCredentials(map[string]string{
		"AUTHORIZATION": "auth",
		"DEPOSITS":      "dep",
		"SUBSCRIPTION":  "",
	})

	tests := []struct {
		category Category
		want     string
	}{
		{CategoryAuthorization, "auth"},
		{CategoryDeposits, "dep"},
		{CategorySubscription, "auth"},
		{Category("OTHER"), "auth"},
		{"", "auth"},
	}
	for _, tt := range tests {
		got, ok := creds.Resolve(tt.category)
		assert.True(t, ok)
		assert.Equal(t, tt.want, got, "category %q", tt.category)
	}
	assert.True(t, creds.Valid())

	_, ok := Credentials{CategoryDeposits: "dep"}.Resolve(CategorySubscription)
	assert.False(t, ok)
	assert.False(t, Credentials{CategoryDeposits: "dep"}.Valid())
}
