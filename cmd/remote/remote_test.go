package remote

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/cargo-remote/cmd/util"
	"github.com/sidkik/cargo-remote/pkg/config"
	"github.com/sidkik/cargo-remote/pkg/errors"
	"github.com/sidkik/cargo-remote/pkg/project"
	"github.com/sidkik/cargo-remote/pkg/session"
	"github.com/sidkik/cargo-remote/pkg/transfer"
)

func TestFlags(t *testing.T) {
	tests := []struct {
		name            string
		args            []string
		expArgs         []string
		expCopyBack     string
		expHidden       bool
		expHost         string
		expPort         string
		expBuildEnv     string
		expToolchainArg string
	}{
		{
			name:            "Defaults",
			args:            []string{"build"},
			expArgs:         []string{"build"},
			expCopyBack:     "",
			expPort:         "0",
			expBuildEnv:     DefaultBuildEnv,
			expToolchainArg: DefaultToolchain,
		},
		{
			name:            "CopyBackWithoutFile",
			args:            []string{"-c", "-h", "-H", "builder", "build", "--release"},
			expArgs:         []string{"build", "--release"},
			expCopyBack:     ".",
			expHidden:       true,
			expHost:         "builder",
			expPort:         "0",
			expBuildEnv:     DefaultBuildEnv,
			expToolchainArg: DefaultToolchain,
		},
		{
			name:            "CopyBackFile",
			args:            []string{"--copy-back=release/app", "-p", "2200", "--rustup-default", "nightly", "build"},
			expArgs:         []string{"build"},
			expCopyBack:     "release/app",
			expPort:         "2200",
			expBuildEnv:     DefaultBuildEnv,
			expToolchainArg: "nightly",
		},
		{
			name:            "CargoFlagsAreForwarded",
			args:            []string{"--build-env", "RUSTFLAGS=-Dwarnings", "test", "-h", "-p", "core", "--", "-c"},
			expArgs:         []string{"test", "-h", "-p", "core", "--", "-c"},
			expPort:         "0",
			expBuildEnv:     "RUSTFLAGS=-Dwarnings",
			expToolchainArg: DefaultToolchain,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			cmd := New()
			require.NoError(t, cmd.ParseFlags(test.args))

			flags := cmd.Flags()
			assert.Equal(t, test.expArgs, flags.Args())
			assert.Equal(t, test.expCopyBack, flags.Lookup("copy-back").Value.String())
			assert.Equal(t, test.expHost, flags.Lookup("remote-host").Value.String())
			assert.Equal(t, test.expPort, flags.Lookup("remote-ssh-port").Value.String())
			assert.Equal(t, test.expBuildEnv, flags.Lookup("build-env").Value.String())
			assert.Equal(t, test.expToolchainArg, flags.Lookup("rustup-default").Value.String())

			hidden, err := flags.GetBool("transfer-hidden")
			require.NoError(t, err)
			assert.Equal(t, test.expHidden, hidden)
		})
	}
}

func TestCopyBackValue(t *testing.T) {
	var enabled bool
	var file string
	value := copyBackValue{enabled: &enabled, file: &file}
	assert.Equal(t, "", value.String())

	require.NoError(t, value.Set("."))
	assert.True(t, enabled)
	assert.Equal(t, "", file)
	assert.Equal(t, ".", value.String())

	require.NoError(t, value.Set("debug/app"))
	assert.Equal(t, "debug/app", file)
	assert.Equal(t, "debug/app", value.String())
}

type mockSync struct {
	plans []transfer.Plan
	err   error
}

func (s *mockSync) Sync(plan transfer.Plan) error {
	s.plans = append(s.plans, plan)
	return s.err
}

type mockShell struct {
	targets  []config.Remote
	commands []string
	code     int
}

func (s *mockShell) Execute(target config.Remote, command string, _ bool) (int, error) {
	s.targets = append(s.targets, target)
	s.commands = append(s.commands, command)
	return s.code, nil
}

type mocks struct {
	sync   *mockSync
	shell  *mockShell
	stderr *bytes.Buffer
}

func setupMocks(t *testing.T, projectConfig string) *mocks {
	configDir := t.TempDir()
	paths := config.Paths{
		Project: filepath.Join(configDir, "project.toml"),
		User:    filepath.Join(configDir, "user.toml"),
	}
	if projectConfig != "" {
		require.NoError(t, os.WriteFile(paths.Project, []byte(projectConfig), 0644))
	}

	m := &mocks{sync: &mockSync{}, shell: &mockShell{}, stderr: &bytes.Buffer{}}

	origLocate, origPaths, origBackends, origStderr, origClock := locateProject, getPaths, newBackends, stderr, clock
	locateProject = func(string, string) (project.Project, error) {
		return project.Project{Name: "app", WorkspaceRoot: "/src/app", ProjectRoot: "/src/app"}, nil
	}
	getPaths = func(string) (config.Paths, error) { return paths, nil }
	newBackends = func(config.Remote) (session.FileSync, session.RemoteShell) {
		return m.sync, m.shell
	}
	stderr = m.stderr
	clock = clockwork.NewFakeClock()
	color = func(msg string, _ int) string { return msg }
	t.Cleanup(func() {
		locateProject, getPaths, newBackends, stderr, clock = origLocate, origPaths, origBackends, origStderr, origClock
		color = util.Color
	})
	return m
}

const builderConfig = `
[[remote]]
name = "builder"
host = "builder.example.com"
user = "me"
ssh_port = 2200
env = "~/.profile"
`

func TestRun(t *testing.T) {
	m := setupMocks(t, builderConfig)

	opts := options{}
	opts.BuildEnv = DefaultBuildEnv
	opts.Toolchain = DefaultToolchain
	err := run(opts, []string{"build", "--release"})
	require.NoError(t, err)

	require.Len(t, m.shell.targets, 1)
	target := m.shell.targets[0]
	assert.Equal(t, "me@builder.example.com", target.Destination())
	assert.Equal(t, 2200, target.SSHPort)

	assert.Regexp(t, `^source ~/\.profile; rustup default stable; cd ~/remote-builds/[0-9a-f]+; `+
		`RUST_BACKTRACE=1 cargo build --release$`, m.shell.commands[0])

	// The sources and Cargo.lock are transferred. Copy back wasn't requested.
	require.Len(t, m.sync.plans, 2)
	assert.True(t, m.sync.plans[0].Compress)
	assert.Equal(t, "me@builder.example.com", m.sync.plans[0].Destination.Host)
	assert.Equal(t, "/src/app/Cargo.lock", m.sync.plans[1].Destination.Path)

	assert.Contains(t, m.stderr.String(), "Finished in 0s")
}

func TestExecute(t *testing.T) {
	m := setupMocks(t, "")

	cmd := New()
	cmd.SetArgs([]string{"-h", "-H", "builder", "build", "-h"})
	require.NoError(t, cmd.Execute())

	require.Len(t, m.shell.commands, 1)
	assert.Regexp(t, `cargo build -h$`, m.shell.commands[0])
	assert.Equal(t, "builder", m.shell.targets[0].Host)

	require.NotEmpty(t, m.sync.plans)
	assert.Equal(t, []string{transfer.BuildDir}, m.sync.plans[0].Excludes)
}

func TestExecuteHelp(t *testing.T) {
	m := setupMocks(t, "")

	out := &bytes.Buffer{}
	cmd := New()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--help"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "--transfer-hidden")
	assert.Empty(t, m.sync.plans)
}

func TestRunOverrides(t *testing.T) {
	m := setupMocks(t, builderConfig)

	opts := options{
		overrides:  config.Remote{Host: "other", SSHPort: 22},
		noCopyLock: true,
		noCompress: true,
	}
	opts.CopyBack = true
	require.NoError(t, run(opts, []string{"check"}))

	assert.Equal(t, "me@other", m.shell.targets[0].Destination())
	assert.Equal(t, 22, m.shell.targets[0].SSHPort)

	require.Len(t, m.sync.plans, 2)
	assert.False(t, m.sync.plans[0].Compress)
	assert.Equal(t, "/src/app/target/", m.sync.plans[1].Destination.Path)
}

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		name          string
		projectConfig string
		overrides     config.Remote
		locateErr     error
		syncErr       error
		shellCode     int
		expExitCode   int
	}{
		{
			name:        "NoRemote",
			expExitCode: errors.ExitNoRemote,
		},
		{
			name:          "UnknownRemoteName",
			projectConfig: builderConfig,
			overrides:     config.Remote{Name: "missing"},
			expExitCode:   errors.ExitNoRemote,
		},
		{
			name:          "InvalidPort",
			projectConfig: builderConfig,
			overrides:     config.Remote{SSHPort: 70000},
			expExitCode:   errors.ExitConfig,
		},
		{
			name:        "NoProject",
			locateErr:   project.ErrNoProject,
			expExitCode: errors.ExitNoProject,
		},
		{
			name:        "MetadataFailed",
			locateErr:   project.MetadataError{Err: errors.New("exit status 101")},
			expExitCode: errors.ExitMetadata,
		},
		{
			name:          "TransferOutFailed",
			projectConfig: builderConfig,
			syncErr:       errors.New("connection refused"),
			expExitCode:   errors.ExitTransferOut,
		},
		{
			name:          "BuildFailed",
			projectConfig: builderConfig,
			shellCode:     7,
			expExitCode:   7,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			m := setupMocks(t, test.projectConfig)
			m.sync.err = test.syncErr
			m.shell.code = test.shellCode
			if test.locateErr != nil {
				locateProject = func(string, string) (project.Project, error) {
					return project.Project{}, test.locateErr
				}
			}

			err := run(options{overrides: test.overrides}, []string{"build"})
			assert.Equal(t, test.expExitCode, errors.ExitCode(err))
		})
	}
}

func TestPrintSummary(t *testing.T) {
	m := setupMocks(t, "")

	printSummary([]session.PhaseResult{
		{State: session.SyncingOut, Duration: 1500 * time.Millisecond},
		{State: session.Building, Duration: 2 * time.Second, Err: errors.RemoteBuildError{Code: 101}},
		{State: session.RetrievingLock, Duration: 250 * time.Millisecond},
	}, session.Done)

	assert.Equal(t, "Transfer sources     ok       1.5s\n"+
		"Build                failed   2s\n"+
		"Retrieve Cargo.lock  ok       250ms\n"+
		"Build failed in 3.75s\n", m.stderr.String())
}

func TestPrintSummaryNothingRan(t *testing.T) {
	m := setupMocks(t, "")
	printSummary(nil, session.Idle)
	assert.Empty(t, m.stderr.String())
}
