package bootstrap

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// AddressBook persists the component name to account-id mapping of every
// deployment, keyed by network name, as a single JSON file. Clients load it
// to find the components of a given network.
type AddressBook struct {
	path string
}

// NewAddressBook creates a book backed by the given file path.
func NewAddressBook(path string) *AddressBook {
	return &AddressBook{path: path}
}

func (b *AddressBook) read() (map[string]map[string]string, error) {
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return make(map[string]map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read address book: %w", err)
	}
	book := make(map[string]map[string]string)
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("parse address book: %w", err)
	}
	return book, nil
}

// Save records the addresses of a deployment under the given network name,
// replacing any previous entry for that network.
func (b *AddressBook) Save(network string, addresses map[string]string) error {
	book, err := b.read()
	if err != nil {
		return err
	}
	book[network] = addresses

	data, err := json.MarshalIndent(book, "", "  ")
	if err != nil {
		return fmt.Errorf("encode address book: %w", err)
	}
	if dir := filepath.Dir(b.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create address book dir: %w", err)
		}
	}
	if err := os.WriteFile(b.path, data, 0o644); err != nil {
		return fmt.Errorf("write address book: %w", err)
	}
	return nil
}

// Load returns the addresses recorded for the given network name.
func (b *AddressBook) Load(network string) (map[string]string, error) {
	book, err := b.read()
	if err != nil {
		return nil, err
	}
	addresses, ok := book[network]
	if !ok {
		return nil, fmt.Errorf("address book has no entry for network %q", network)
	}
	return addresses, nil
}
