package sqlstore

import (
	"fmt"
	"strings"
)

func sanitizeTableName(name string) (string, error) {
	if name == "" {
		return "", ErrTableNameRequired
	}
	parts := strings.Split(name, ".")
	for _, part := range parts {
		if part == "" {
			return "", fmt.Errorf("%w: %s", ErrInvalidTableName, name)
		}
		for _, r := range part {
			if r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				continue
			}

			return "", fmt.Errorf("%w: %s", ErrInvalidTableName, name)
		}
	}

	return name, nil
}

// Tables names the three tables used by the store. Use schema.table for a non-default schema.
type Tables struct {
	Suppliers string
	Configs   string
	SyncLogs  string
}

func (t Tables) withDefaults() Tables {
	if t.Suppliers == "" {
		t.Suppliers = "suppliers"
	}
	if t.Configs == "" {
		t.Configs = "configs"
	}
	if t.SyncLogs == "" {
		t.SyncLogs = "sync_logs"
	}

	return t
}

func (t Tables) sanitize() (Tables, error) {
	var err error
	if t.Suppliers, err = sanitizeTableName(t.Suppliers); err != nil {
		return Tables{}, err
	}
	if t.Configs, err = sanitizeTableName(t.Configs); err != nil {
		return Tables{}, err
	}
	if t.SyncLogs, err = sanitizeTableName(t.SyncLogs); err != nil {
		return Tables{}, err
	}

	return t, nil
}
