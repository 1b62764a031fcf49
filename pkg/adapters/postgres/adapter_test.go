package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/legout/duckalog/pkg/adapter"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  adapter.Config
		want string
	}{
		{
			name: "full config",
			cfg: adapter.Config{
				Host:     "db.internal",
				Port:     5433,
				Database: "app",
				User:     "svc",
				Password: "secret",
			},
			want: "host=db.internal port=5433 dbname=app user=svc password=secret",
		},
		{
			name: "defaults omitted",
			cfg: adapter.Config{
				Host:     "localhost",
				Database: "app",
			},
			want: "host=localhost dbname=app",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildDSN(tt.cfg))
		})
	}
}
