package migrate

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestPrepareURLForDB(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"plain", "postgresql://u:p@db:5432/dla", "postgresql://u:p@db:5432/dla?sslmode=disable"},
		{"params", "postgresql://db/dla?x=1", "postgresql://db/dla?x=1&sslmode=disable"},
		{"sslmode set", "postgresql://db/dla?sslmode=require", "postgresql://db/dla?sslmode=require"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, prepareURLForDB(tt.url))
		})
	}
}
