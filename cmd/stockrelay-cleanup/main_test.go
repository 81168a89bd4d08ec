package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptionsValidate(t *testing.T) {
	cases := []struct {
		name    string
		opts    options
		wantErr bool
	}{
		{name: "ok", opts: options{driver: "mysql", dsn: "x", retention: time.Hour}},
		{name: "postgres", opts: options{driver: "postgres", dsn: "x", retention: time.Hour}},
		{name: "schema only", opts: options{driver: "mysql", dsn: "x", initSchema: true}},
		{name: "missing dsn", opts: options{driver: "mysql", retention: time.Hour}, wantErr: true},
		{name: "bad driver", opts: options{driver: "oracle", dsn: "x", retention: time.Hour}, wantErr: true},
		{name: "no retention", opts: options{driver: "mysql", dsn: "x"}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.opts.validate()
			if tc.wantErr {
				assert.Error(t, err)

				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("STOCKRELAY_CLEANUP_TEST", "postgres")
	assert.Equal(t, "postgres", envOr("STOCKRELAY_CLEANUP_TEST", "mysql"))
	assert.Equal(t, "mysql", envOr("STOCKRELAY_CLEANUP_UNSET", "mysql"))
}
