package participants

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"sticks-bot/internal/domain"
)

// Entry описывает участника в файле списка.
type Entry struct {
	Name      string   `yaml:"name"`
	Usernames []string `yaml:"usernames"`
	UserIDs   []int64  `yaml:"user_ids"`
}

type file struct {
	Participants []Entry `yaml:"participants"`
}

// Directory хранит фиксированный список участников, которым разрешены опросы и правка палок.
type Directory struct {
	names      []string
	byID       map[int64]string
	byUsername map[string]string
}

var _ domain.ParticipantDirectory = (*Directory)(nil)

// LoadFile читает список участников из YAML-файла.
func LoadFile(path string) (*Directory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read participants: %w", err)
	}
	return Parse(bytes.NewReader(raw))
}

// Parse разбирает YAML со списком участников.
func Parse(r io.Reader) (*Directory, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode participants: %w", err)
	}
	return New(f.Participants)
}

// New строит справочник из записей. Имена и идентификаторы не должны повторяться.
func New(entries []Entry) (*Directory, error) {
	d := &Directory{
		byID:       make(map[int64]string),
		byUsername: make(map[string]string),
	}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return nil, errors.New("у участника не указано имя")
		}
		if _, ok := seen[name]; ok {
			return nil, fmt.Errorf("участник %q указан дважды", name)
		}
		seen[name] = struct{}{}
		d.names = append(d.names, name)

		for _, id := range e.UserIDs {
			if other, ok := d.byID[id]; ok {
				return nil, fmt.Errorf("id %d указан у %q и %q", id, other, name)
			}
			d.byID[id] = name
		}
		for _, u := range e.Usernames {
			key := normalizeUsername(u)
			if key == "" {
				continue
			}
			if other, ok := d.byUsername[key]; ok {
				return nil, fmt.Errorf("username %q указан у %q и %q", u, other, name)
			}
			d.byUsername[key] = name
		}
	}
	return d, nil
}

// Resolve ищет участника сначала по id, затем по username.
func (d *Directory) Resolve(id domain.Identity) (string, bool) {
	if name, ok := d.byID[id.UserID]; ok && id.UserID != 0 {
		return name, true
	}
	if key := normalizeUsername(id.Username); key != "" {
		name, ok := d.byUsername[key]
		return name, ok
	}
	return "", false
}

// Participants возвращает имена в порядке файла.
func (d *Directory) Participants() []string {
	return append([]string(nil), d.names...)
}

func normalizeUsername(u string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(u), "@"))
}
