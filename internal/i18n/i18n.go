// internal/i18n/i18n.go
package i18n

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type I18n struct {
	mu           sync.RWMutex
	translations map[string]map[string]string
	defaultLang  string
}

var (
	instance *I18n
	once     sync.Once
)

// Initialize loads every <lang>.json file under localesPath. Lookups that
// miss the requested language fall back to defaultLang.
func Initialize(localesPath, defaultLang string) error {
	var err error
	once.Do(func() {
		instance = New(defaultLang)
		err = instance.LoadTranslations(localesPath)
	})
	return err
}

func New(defaultLang string) *I18n {
	if defaultLang == "" {
		defaultLang = "ar"
	}
	return &I18n{
		translations: make(map[string]map[string]string),
		defaultLang:  defaultLang,
	}
}

func (i *I18n) LoadTranslations(localesPath string) error {
	files, err := filepath.Glob(filepath.Join(localesPath, "*.json"))
	if err != nil {
		return fmt.Errorf("failed to list locale files in %s: %w", localesPath, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no locale files found in %s", localesPath)
	}

	for _, filePath := range files {
		lang := strings.TrimSuffix(filepath.Base(filePath), ".json")

		data, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read locale file %s: %w", filePath, err)
		}

		var translations map[string]string
		if err := json.Unmarshal(data, &translations); err != nil {
			return fmt.Errorf("failed to unmarshal locale file %s: %w", filePath, err)
		}

		i.mu.Lock()
		i.translations[lang] = translations
		i.mu.Unlock()
	}

	return nil
}

func (i *I18n) T(lang, key string, args ...interface{}) string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if text, ok := i.lookup(lang, key); ok {
		return format(text, args)
	}
	if lang != i.defaultLang {
		if text, ok := i.lookup(i.defaultLang, key); ok {
			return format(text, args)
		}
	}

	// Return key if no translation found
	return key
}

func (i *I18n) lookup(lang, key string) (string, bool) {
	translations, ok := i.translations[lang]
	if !ok {
		return "", false
	}
	text, ok := translations[key]
	return text, ok
}

func (i *I18n) Supports(lang string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.translations[lang]
	return ok
}

func (i *I18n) DefaultLanguage() string {
	return i.defaultLang
}

func format(text string, args []interface{}) string {
	if len(args) > 0 {
		return fmt.Sprintf(text, args...)
	}
	return text
}

// Global functions
func T(lang, key string, args ...interface{}) string {
	if instance != nil {
		return instance.T(lang, key, args...)
	}
	return key
}

func DefaultLanguage() string {
	if instance == nil {
		return "ar"
	}
	return instance.DefaultLanguage()
}

func IsSupported(lang string) bool {
	return instance != nil && instance.Supports(lang)
}

func GetSupportedLanguages() []string {
	if instance == nil {
		return []string{"ar"}
	}

	instance.mu.RLock()
	defer instance.mu.RUnlock()

	langs := make([]string, 0, len(instance.translations))
	for lang := range instance.translations {
		langs = append(langs, lang)
	}
	return langs
}
