package i18n

import (
	"testing"

	"github.com/reoring/clientflow"
	"github.com/stretchr/testify/assert"
)

func TestTranslator_DefaultAndJapanese(t *testing.T) {
	t.Cleanup(func() { SetLanguage("en") })

	assert.Equal(t, "duplicate discriminator value", Message(clientflow.CodeDuplicateDiscriminator))

	SetLanguage("ja")
	assert.Equal(t, "判別子の値が重複しています", Message(clientflow.CodeDuplicateDiscriminator))

	SetLanguage("fr")
	assert.Equal(t, "duplicate discriminator value", Message(clientflow.CodeDuplicateDiscriminator))
}

func TestTranslator_UnknownCodeFallsBack(t *testing.T) {
	assert.Equal(t, "no_such_code", Message("no_such_code"))
}

func TestTranslator_EveryCodeHasBothLanguages(t *testing.T) {
	for code := range dictionaries["en"] {
		_, ok := dictionaries["ja"][code]
		assert.True(t, ok, code)
	}
	assert.Len(t, dictionaries["ja"], len(dictionaries["en"]))
}

type prefixTranslator struct{}

func (prefixTranslator) Message(code string, data map[string]string) string { return "X:" + code + ":" + data["path"] }

func TestSetTranslator(t *testing.T) {
	t.Cleanup(func() { SetTranslator(nil) })
	SetTranslator(prefixTranslator{})
	assert.Equal(t, "X:missing_default:$.a", T(clientflow.CodeMissingDefault, map[string]string{"path": "$.a"}))

	SetTranslator(nil)
	assert.Equal(t, "empty output path", Message(clientflow.CodeEmptyOutputPath))
}
