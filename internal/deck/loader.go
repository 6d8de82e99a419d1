package deck

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_deck.yaml
var defaultDeckYAML []byte

// file - формат YAML-файла колоды.
type file struct {
	Stories []Story `yaml:"stories"`
}

// Default возвращает встроенную колоду из десяти историй.
// Встроенный файл проверяется тестами, поэтому ошибка здесь - ошибка сборки.
func Default() *Deck {
	d, err := Load(bytes.NewReader(defaultDeckYAML))
	if err != nil {
		panic(fmt.Sprintf("embedded deck is invalid: %v", err))
	}
	return d
}

// Load читает колоду в формате YAML. Неизвестные поля считаются ошибкой.
func Load(r io.Reader) (*Deck, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f file
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, ErrEmptyDeck
		}
		return nil, fmt.Errorf("ошибка разбора колоды: %w", err)
	}
	return New(f.Stories)
}

// LoadFile читает колоду из файла. Пустой путь означает встроенную колоду.
func LoadFile(path string) (*Deck, error) {
	if path == "" {
		return Default(), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть файл колоды %s: %w", path, err)
	}
	defer fh.Close()

	d, err := Load(fh)
	if err != nil {
		return nil, fmt.Errorf("колода %s: %w", path, err)
	}
	return d, nil
}
