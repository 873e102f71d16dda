package buildinfo

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_Version(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ctx  *Context
		want string
	}{
		{name: "nil context", ctx: nil, want: UnknownValue},
		{name: "empty version", ctx: NewContext("", "2026-01-01"), want: UnknownValue},
		{name: "valid version", ctx: NewContext("1.0.0", "2026-01-01"), want: "1.0.0"},
		{name: "pre-release", ctx: NewContext("1.0.0-beta.1", "2026-01-01"), want: "1.0.0-beta.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.ctx.GetVersion())
		})
	}
}

func TestContext_BuildDate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, UnknownValue, (*Context)(nil).GetBuildDate())
	assert.Equal(t, UnknownValue, NewContext("1.0.0", "").GetBuildDate())
	assert.Equal(t, "2026-01-01T12:00:00Z", NewContext("1.0.0", "2026-01-01T12:00:00Z").GetBuildDate())
}

func TestContext_SessionID(t *testing.T) {
	t.Parallel()

	a := NewContext("1.0.0", "")
	b := NewContext("1.0.0", "")

	_, err := uuid.Parse(a.GetSessionID())
	require.NoError(t, err)
	assert.NotEqual(t, a.GetSessionID(), b.GetSessionID(), "every run gets its own session")
	assert.Equal(t, UnknownValue, (*Context)(nil).GetSessionID())
	assert.Equal(t, UnknownValue, (&Context{}).GetSessionID())
}
