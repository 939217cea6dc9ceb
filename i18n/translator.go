// Package i18n provides localized titles for clientflow Issue codes.
package i18n

import (
	"strings"

	"github.com/reoring/clientflow"
)

// Translator retrieves localized messages for Issue codes.
// data fills "{name}" placeholders in the message (for example "path").
type Translator interface {
	Message(code string, data map[string]string) string
}

var dictionaries = map[string]map[string]string{
	"en": {
		clientflow.CodeMetaSchema:              "not an OpenAPI 3.0.3 schema",
		clientflow.CodeRefForbidden:            "$ref is not allowed",
		clientflow.CodeMissingExample:          "example missing",
		clientflow.CodeInvalidExample:          "example does not match its schema",
		clientflow.CodeIllogicalDefault:        "default has no effect here",
		clientflow.CodeMissingDefault:          "default missing for an optional field",
		clientflow.CodeInvalidDefault:          "default does not match its schema",
		clientflow.CodeInvalidProperties:       "invalid properties",
		clientflow.CodeNestedDiscriminator:     "nested discriminated union",
		clientflow.CodeDiscriminatorProperties: "properties beside a discriminator",
		clientflow.CodeInvalidDiscriminator:    "invalid discriminator",
		clientflow.CodeDiscriminatorBranch:     "invalid discriminated union branch",
		clientflow.CodeDuplicateDiscriminator:  "duplicate discriminator value",
		clientflow.CodeInvalidRequired:         "invalid required list",
		clientflow.CodeUnsafeFlowScreen:        "client values reach unsafe screen inputs",
		clientflow.CodeUnknownReference:        "unknown parameter reference",
		clientflow.CodeEmptyOutputPath:         "empty output path",
		clientflow.CodeInvalidFormat:           "invalid format string",
		clientflow.CodeInvalidExtractSource:    "extract must read a server parameter",
	},
	"ja": {
		clientflow.CodeMetaSchema:              "OpenAPI 3.0.3 のスキーマではありません",
		clientflow.CodeRefForbidden:            "$ref は使用できません",
		clientflow.CodeMissingExample:          "example がありません",
		clientflow.CodeInvalidExample:          "example がスキーマに一致しません",
		clientflow.CodeIllogicalDefault:        "ここでの default は意味を持ちません",
		clientflow.CodeMissingDefault:          "省略可能なフィールドに default がありません",
		clientflow.CodeInvalidDefault:          "default がスキーマに一致しません",
		clientflow.CodeInvalidProperties:       "properties が不正です",
		clientflow.CodeNestedDiscriminator:     "判別共用体を入れ子にできません",
		clientflow.CodeDiscriminatorProperties: "判別子と properties は併用できません",
		clientflow.CodeInvalidDiscriminator:    "判別子が不正です",
		clientflow.CodeDiscriminatorBranch:     "判別共用体の分岐が不正です",
		clientflow.CodeDuplicateDiscriminator:  "判別子の値が重複しています",
		clientflow.CodeInvalidRequired:         "required が不正です",
		clientflow.CodeUnsafeFlowScreen:        "クライアントの値が安全でない画面入力に渡ります",
		clientflow.CodeUnknownReference:        "不明なパラメータ参照です",
		clientflow.CodeEmptyOutputPath:         "出力パスが空です",
		clientflow.CodeInvalidFormat:           "書式文字列が不正です",
		clientflow.CodeInvalidExtractSource:    "extract はサーバーパラメータを参照する必要があります",
	},
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := dictionaries[t.lang][code]
	if !ok {
		msg, ok = dictionaries["en"][code]
	}
	if !ok {
		return code
	}
	for k, v := range data {
		msg = strings.ReplaceAll(msg, "{"+k+"}", v)
	}
	return msg
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if _, ok := dictionaries[lang]; !ok {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }

// Message is the localized title of an Issue code.
func Message(code string) string { return T(code, nil) }
