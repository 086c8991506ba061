package placeholder

import (
	"context"
	"fmt"
	"sync"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
)

// AccountDirectory is an in-memory IBAN to holder lookup.
type AccountDirectory struct {
	mu      sync.RWMutex
	holders map[string]string
}

func NewAccountDirectory() *AccountDirectory {
	return &AccountDirectory{holders: make(map[string]string)}
}

// Register adds or replaces the holder of iban.
func (d *AccountDirectory) Register(iban, name string) error {
	normalized, err := domain.NormalizeIBAN(iban)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.holders[normalized] = name
	return nil
}

func (d *AccountDirectory) Lookup(_ context.Context, iban string) (application.AccountHolder, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	name, ok := d.holders[iban]
	if !ok {
		return application.AccountHolder{}, fmt.Errorf("iban %s: %w", iban, application.ErrRecordNotFound)
	}
	return application.AccountHolder{IBAN: iban, Name: name}, nil
}
