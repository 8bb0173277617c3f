package local

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/drakos74/signal-router/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_Send(t *testing.T) {

	file := filepath.Join(t.TempDir(), "messages.log")
	u, err := NewUser(file)
	require.NoError(t, err)

	u.Send(api.Operator, api.NewMessage("first"))
	u.Send(api.Operator, api.NewMessage("second").AddLine("line"))

	mm := u.History()
	require.Equal(t, 2, len(mm))
	assert.Equal(t, "second\nline", mm[1].Message.Text)

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), "first"))
}

func TestMockUser(t *testing.T) {

	u := NewMockUser()
	cmds := u.Listen("test", "/")

	assert.False(t, u.MockMessage("no-prefix", "me"))

	go u.MustMockMessage("/show", "me")
	cmd := <-cmds
	assert.Equal(t, "/show", cmd.Exec())
	assert.Equal(t, "me", cmd.User)

	u.Send(api.Operator, api.NewMessage("reply"))
	msg, err := u.Next(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "reply", msg.Message.Text)

	_, err = u.Next(10 * time.Millisecond)
	assert.Error(t, err)
}
