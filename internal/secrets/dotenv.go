package secrets

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// DotenvProvider читает секреты из файла формата KEY=VALUE.
//
// Файл разбирается один раз при создании провайдера. Пустые строки
// и строки, начинающиеся с #, пропускаются; одинарные и двойные
// кавычки вокруг значения снимаются.
type DotenvProvider struct {
	values map[string]string
}

// NewDotenvProvider разбирает файл и создаёт провайдер.
func NewDotenvProvider(path string) (*DotenvProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dotenv file: %w", err)
	}
	defer f.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		key, value, ok := strings.Cut(text, "=")
		if !ok {
			return nil, fmt.Errorf("dotenv line %d: expected KEY=VALUE, got %q", line, text)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("dotenv line %d: empty key", line)
		}
		values[key] = unquote(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dotenv file: %w", err)
	}
	return &DotenvProvider{values: values}, nil
}

func (p *DotenvProvider) Get(name string) (string, error) {
	value, ok := p.values[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, name)
	}
	return value, nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
