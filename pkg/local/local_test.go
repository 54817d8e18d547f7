package local_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dkurbatov/ai-assistant-bot/pkg/local"
)

func TestTextSet_Text(t *testing.T) {
	set := local.NewSet("hello", local.NewTrans(local.Rus, "привет"))

	assert.Equal(t, "hello", set.Text(local.Eng))
	assert.Equal(t, "привет", set.Text(local.Rus))
	assert.Equal(t, "hello", set.Text(local.Language("de")))
}

func TestTextSet_Format(t *testing.T) {
	set := local.NewSet("used %d of %d", local.NewTrans(local.Rus, "использовано %d из %d"))

	assert.Equal(t, "used 3 of 5", set.Format(local.Eng, 3, 5))
	assert.Equal(t, "использовано 3 из 5", set.Format(local.Rus, 3, 5))
}
