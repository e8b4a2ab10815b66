package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LanguageInfo holds the fields of a languages.yml entry used for file detection.
type LanguageInfo struct {
	Type       string   `yaml:"type"`
	Extensions []string `yaml:"extensions"`
	Filenames  []string `yaml:"filenames"`
}

// LanguageMap maps language names (e.g., "Go") to their details.
type LanguageMap map[string]LanguageInfo

// LoadedLanguageData holds the parsed language map and its lookup tables.
type LoadedLanguageData struct {
	Langs        LanguageMap
	extensionMap map[string]string // ".go" -> "Go"
	filenameMap  map[string]string // "Makefile" -> "Makefile"
}

// languageSearchPaths lists the directories checked for languages.yml, in order.
func languageSearchPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "grabit"))
	}
	return append(paths, ".")
}

// loadLanguageData finds and parses the first languages.yml in dirs. It returns nil, nil
// when none exists; the PDF sink then relies on chroma's own detection.
func loadLanguageData(dirs []string) (*LoadedLanguageData, error) {
	var langFilePath string
	for _, dir := range dirs {
		candidate := filepath.Join(dir, "languages.yml")
		if _, err := os.Stat(candidate); err == nil {
			langFilePath = candidate
			break
		}
	}
	if langFilePath == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(langFilePath)
	if err != nil {
		return nil, fmt.Errorf("error reading language file %s: %w", langFilePath, err)
	}
	return parseLanguageData(raw)
}

func parseLanguageData(raw []byte) (*LoadedLanguageData, error) {
	var langs LanguageMap
	if err := yaml.Unmarshal(raw, &langs); err != nil {
		return nil, fmt.Errorf("error parsing language file: %w", err)
	}

	data := &LoadedLanguageData{
		Langs:        langs,
		extensionMap: make(map[string]string),
		filenameMap:  make(map[string]string),
	}
	for langName, info := range langs {
		for _, ext := range info.Extensions {
			lowerExt := strings.ToLower(ext)
			if data.extensionMap[lowerExt] == "" {
				data.extensionMap[lowerExt] = langName
			}
		}
		for _, fname := range info.Filenames {
			if data.filenameMap[fname] == "" {
				data.filenameMap[fname] = langName
			}
		}
	}
	return data, nil
}

// GetLanguageForFile determines the language for a given path based on loaded data.
func (ld *LoadedLanguageData) GetLanguageForFile(filePath string) (string, bool) {
	if ld == nil {
		return "", false
	}

	baseName := filepath.Base(filePath)
	if lang, ok := ld.filenameMap[baseName]; ok {
		return lang, true
	}
	if ext := strings.ToLower(filepath.Ext(baseName)); ext != "" {
		if lang, ok := ld.extensionMap[ext]; ok {
			return lang, true
		}
	}
	return "", false
}
