//go:build !windows

package plugins

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_LoadAll_PermissionDenied(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}

	restricted := filepath.Join(t.TempDir(), "restricted")
	require.NoError(t, os.MkdirAll(restricted, 0o000))
	t.Cleanup(func() {
		_ = os.Chmod(restricted, 0o755)
	})

	err := NewManager([]string{restricted}, nil).LoadAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}
