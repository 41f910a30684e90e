package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sershocode/supdater/internal/remote"
	"github.com/sershocode/supdater/internal/selfupdate"
	"github.com/sershocode/supdater/internal/updater"
	"github.com/sershocode/supdater/internal/workspace"
)

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"locked", fmt.Errorf("lock: %w", workspace.ErrWorkspaceLocked), "already running"},
		{"missing root", fmt.Errorf("connect: %w", updater.ErrSyncRootUnavailable), "does not exist on the server"},
		{"connect timeout", &remote.Error{Op: remote.OpDial, Kind: remote.KindTimeout, Err: errors.New("i/o timeout")}, "did not answer"},
		{"transfer timeout", &remote.Error{Op: remote.OpRetrieve, Kind: remote.KindTimeout, Err: errors.New("i/o timeout")}, "kept timing out"},
		{"cancelled form", errSettingsCancelled, "cancelled"},
		{"other", errors.New("boom"), "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, describeError(tt.err), tt.want)
		})
	}
}

func TestPlanCommand_MissingConfig(t *testing.T) {
	cmd := newPlanCmd()
	addGlobalFlags(cmd)
	cmd.SetArgs([]string{"--dir", t.TempDir()})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestSelfUpdateCommand_RequiresUpdateURL(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root+"/SUpdaterOptions.json", sampleConfig)

	cmd := newSelfUpdateCmd()
	addGlobalFlags(cmd)
	cmd.SetArgs([]string{"--dir", root, "--check"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()
	assert.ErrorIs(t, err, selfupdate.ErrNoUpdateURL)
}
