package settings

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	dirPermissions  = 0o755
	filePermissions = 0o644
)

// fileDocument mirrors the [Locale] group of the desktop's global settings.
type fileDocument struct {
	Locale map[string]string `toml:"Locale" yaml:"Locale"`
}

type codec struct {
	marshal   func(v any) ([]byte, error)
	unmarshal func(data []byte, v any) error
}

func tomlMarshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func codecFor(path string) (codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", "":
		return codec{marshal: tomlMarshal, unmarshal: toml.Unmarshal}, nil
	case ".yaml", ".yml":
		return codec{marshal: yaml.Marshal, unmarshal: yaml.Unmarshal}, nil
	default:
		return codec{}, fmt.Errorf("unsupported settings file type %q", filepath.Ext(path))
	}
}

// FileStore keeps the settings in a toml or yaml file. Every read goes to the
// file so changes by other writers are picked up.
type FileStore struct {
	path  string
	codec codec
	mu    sync.Mutex
}

// NewFileStore creates a store for path; the file does not need to exist.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("settings file path is empty")
	}

	c, err := codecFor(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: path, codec: c}, nil
}

func (f *FileStore) load() (fileDocument, error) {
	doc := fileDocument{Locale: map[string]string{}}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, err
	}

	if err = f.codec.unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("could not decode %s: %w", f.path, err)
	}
	if doc.Locale == nil {
		doc.Locale = map[string]string{}
	}
	return doc, nil
}

func (f *FileStore) Read(_ context.Context, key string) (string, bool, error) {
	if err := validKey(key); err != nil {
		return "", false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return "", false, err
	}
	value, ok := doc.Locale[key]
	return value, ok, nil
}

// Write updates key and atomically replaces the file.
func (f *FileStore) Write(_ context.Context, key, value string) error {
	if err := validKey(key); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.load()
	if err != nil {
		return err
	}
	doc.Locale[key] = value

	data, err := f.codec.marshal(doc)
	if err != nil {
		return err
	}

	return writeFileAtomic(f.path, data)
}

func (f *FileStore) Close() error {
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Chmod(filePermissions); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
