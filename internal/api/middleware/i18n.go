package middleware

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/chaimanaouali/SmartCourses/config"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// Translator holds the loaded message bundles plus a flattened map per
// language for direct key lookup in handlers.
type Translator struct {
	bundle       *i18n.Bundle
	localizer    map[string]*i18n.Localizer
	translations map[string]map[string]interface{}
}

// NewTranslator loads every <lang>.json file from the locales directory.
func NewTranslator(cfg config.I18nConfig) (*Translator, error) {
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}
	if cfg.LocalesDir == "" {
		cfg.LocalesDir = "./web/locales"
	}

	bundle := i18n.NewBundle(language.MustParse(cfg.DefaultLanguage))
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	t := &Translator{
		bundle:       bundle,
		localizer:    make(map[string]*i18n.Localizer),
		translations: make(map[string]map[string]interface{}),
	}

	localeFiles, err := os.ReadDir(cfg.LocalesDir)
	if err != nil {
		return nil, err
	}

	for _, file := range localeFiles {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		langCode := strings.TrimSuffix(file.Name(), filepath.Ext(file.Name()))

		filePath := filepath.Join(cfg.LocalesDir, file.Name())
		if _, err := bundle.LoadMessageFile(filePath); err != nil {
			return nil, err
		}
		t.localizer[langCode] = i18n.NewLocalizer(bundle, langCode)

		jsonData, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		var translations map[string]interface{}
		if err := json.Unmarshal(jsonData, &translations); err != nil {
			return nil, err
		}
		t.translations[langCode] = flattenMap(translations, "")
	}

	return t, nil
}

// Supported reports whether a language code has a loaded bundle.
func (t *Translator) Supported(lang string) bool {
	_, ok := t.translations[lang]
	return ok
}

// lookup resolves a flattened key for one language. Non-string leaves
// (an array or number in a locale file) are treated as missing.
func (t *Translator) lookup(lang, key string) (string, bool) {
	messages := t.translations[lang]
	if messages == nil {
		return "", false
	}
	val, ok := messages[key]
	if !ok {
		return "", false
	}
	msg, ok := val.(string)
	return msg, ok
}

// I18n resolves the request language from the lang query parameter or
// the session and stores a translation function on the context.
func I18n(cfg config.I18nConfig) gin.HandlerFunc {
	translator, err := NewTranslator(cfg)
	if err != nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		session := sessions.Default(c)
		lang := c.Query("lang")

		if lang != "" && translator.Supported(lang) {
			session.Set("language", lang)
			session.Save()
		} else {
			if sessionLang, ok := session.Get("language").(string); ok {
				lang = sessionLang
			}
		}

		if lang == "" || !translator.Supported(lang) {
			lang = cfg.DefaultLanguage
		}

		c.Set("language", lang)
		c.Set("translator", translator)

		c.Set("t", func(key string, args ...interface{}) string {
			if msg, ok := translator.lookup(lang, key); ok {
				return msg
			}
			if msg, ok := translator.lookup(cfg.DefaultLanguage, key); ok {
				return msg
			}
			return key
		})

		c.Next()
	}
}

// Translate looks up a key with the request's resolved language,
// falling back to the key itself. Handlers use this for API messages.
func Translate(c *gin.Context, key string) string {
	if fn, ok := c.Get("t"); ok {
		if t, ok := fn.(func(string, ...interface{}) string); ok {
			return t(key)
		}
	}
	return key
}

// flattenMap turns nested maps into dotted keys ("errors.no_face").
func flattenMap(input map[string]interface{}, prefix string) map[string]interface{} {
	result := make(map[string]interface{})

	for k, v := range input {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch child := v.(type) {
		case map[string]interface{}:
			for childKey, childValue := range flattenMap(child, key) {
				result[childKey] = childValue
			}
		default:
			result[key] = v
		}
	}

	return result
}
