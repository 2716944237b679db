package config

import (
	"bufio"
	"bytes"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ghodss/yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/cargo-remote/pkg/config"
	"github.com/sidkik/cargo-remote/pkg/errors"
	"github.com/sidkik/cargo-remote/pkg/project"
)

func TestPromptUser(t *testing.T) {
	tests := []struct {
		name                                                 string
		helpString, prompt, defaultAnswer, currAnswer, stdin string
		expPrompt, expResult                                 string
	}{
		{
			name:       "No default or current answer",
			helpString: "explanation",
			prompt:     "prompt",
			stdin:      "user input\n",
			expPrompt: "explanation\n" +
				"prompt:\n" +
				"Please enter manually: \n",
			expResult: "user input",
		},
		{
			name:       "Current answer only, enter manually",
			helpString: "explanation",
			prompt:     "prompt",
			currAnswer: "current answer",
			stdin:      "2\nuser input\n",
			expPrompt: "explanation\n" +
				"prompt:\n" +
				"\n" +
				"\t1. current answer (recommended)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: " +
				"Please enter manually: \n",
			expResult: "user input",
		},
		{
			name:          "Same default answer and current answer",
			helpString:    "explanation",
			prompt:        "prompt",
			defaultAnswer: "default answer",
			currAnswer:    "default answer",
			stdin:         "1\n",
			expPrompt: "explanation\n" +
				"prompt:\n" +
				"\n" +
				"\t1. default answer (recommended)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: \n",
			expResult: "default answer",
		},
		{
			name:          "Different answers, chose current answer",
			helpString:    "explanation",
			prompt:        "prompt",
			defaultAnswer: "default answer",
			currAnswer:    "current answer",
			stdin:         "2\n",
			expPrompt: "explanation\n" +
				"prompt:\n" +
				"\n" +
				"\t1. default answer (recommended)\n" +
				"\t2. current answer\n" +
				"\t3. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-3]: \n",
			expResult: "current answer",
		},
		{
			name:          "Empty response picks the first answer",
			helpString:    "help",
			prompt:        "prompt",
			defaultAnswer: "one",
			currAnswer:    "two",
			stdin:         "\r\n",
			expPrompt: "help\n" +
				"prompt:\n" +
				"\n" +
				"\t1. one (recommended)\n" +
				"\t2. two\n" +
				"\t3. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-3]: \n",
			expResult: "one",
		},
		{
			name:          "Invalid choice is asked again",
			helpString:    "help",
			prompt:        "prompt",
			defaultAnswer: "one",
			stdin:         "7\nfoo\n1\n",
			expPrompt: "help\n" +
				"prompt:\n" +
				"\n" +
				"\t1. one (recommended)\n" +
				"\t2. (Enter manually)\n" +
				"\n" +
				"Please choose one [1-2]: " +
				"Please choose one [1-2]: " +
				"Please choose one [1-2]: \n",
			expResult: "one",
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			stdout = out
			defer func() { stdout = os.Stdout }()

			reader := bufio.NewReader(strings.NewReader(test.stdin))
			resp, err := promptUser(reader, test.helpString, test.prompt,
				test.defaultAnswer, test.currAnswer)
			assert.NoError(t, err)
			assert.Equal(t, test.expResult, resp)
			assert.Equal(t, test.expPrompt, out.String())
		})
	}
}

func TestPromptUserEOF(t *testing.T) {
	stdout = &bytes.Buffer{}
	defer func() { stdout = os.Stdout }()

	_, err := promptUser(bufio.NewReader(strings.NewReader("")), "help", "prompt", "", "")
	assert.Error(t, err)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name  string
		fn    func(string) (string, bool)
		input string
		expOK bool
	}{
		{"ValidPort", portValidationFn, "2200", true},
		{"PortZero", portValidationFn, "0", false},
		{"PortTooLarge", portValidationFn, "65536", false},
		{"PortNotANumber", portValidationFn, "ssh", false},
		{"Host", nonEmptyValidationFn("host"), "builder", true},
		{"EmptyHost", nonEmptyValidationFn("host"), "  ", false},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			msg, ok := test.fn(test.input)
			assert.Equal(t, test.expOK, ok)
			assert.Equal(t, ok, msg == "")
		})
	}
}

func mockIO(t *testing.T, input string) *bytes.Buffer {
	out := &bytes.Buffer{}
	origStdout, origStdin, origUser := stdout, stdin, getCurrentUser
	stdout = out
	stdin = strings.NewReader(input)
	getCurrentUser = func() (*user.User, error) {
		return &user.User{Username: "me"}, nil
	}
	t.Cleanup(func() {
		stdout, stdin, getCurrentUser = origStdout, origStdin, origUser
	})
	return out
}

func TestGenerateRemote(t *testing.T) {
	existing := config.File{Remotes: []config.Remote{
		{Name: "builder", Host: "old.example.com", User: "old", SSHPort: 2200, EnvProfile: "~/.profile"},
	}}

	tests := []struct {
		name    string
		cliOpts config.Remote
		file    config.File
		stdin   string
		exp     config.Remote
	}{
		{
			name:    "AllFlagsSet",
			cliOpts: config.Remote{Name: "a", Host: "h", User: "u", SSHPort: 1, TempDir: "/t"},
			exp:     config.Remote{Name: "a", Host: "h", User: "u", SSHPort: 1, TempDir: "/t"},
		},
		{
			name: "PromptDefaults",
			// Name: default. Host: entered. User: default. Port: invalid
			// then default. Temp dir: default.
			stdin: "1\nbuilder.example.com\n1\n3\n0\n1\n1\n",
			exp: config.Remote{
				Name:    "default",
				Host:    "builder.example.com",
				User:    "me",
				SSHPort: 22,
				TempDir: "~/remote-builds",
			},
		},
		{
			name:    "UpdateExisting",
			cliOpts: config.Remote{Name: "builder", TempDir: "/builds"},
			file:    existing,
			// Host: current. User: current. Port: current.
			stdin: "1\n2\n2\n",
			exp: config.Remote{
				Name:       "builder",
				Host:       "old.example.com",
				User:       "old",
				SSHPort:    2200,
				TempDir:    "/builds",
				EnvProfile: "~/.profile",
			},
		},
		{
			name: "PromptedNameOfExisting",
			file: existing,
			// Name: the existing remote. Host: current. User: current.
			// Port: current. Temp dir: default.
			stdin: "2\n1\n2\n2\n1\n",
			exp: config.Remote{
				Name:       "builder",
				Host:       "old.example.com",
				User:       "old",
				SSHPort:    2200,
				TempDir:    "~/remote-builds",
				EnvProfile: "~/.profile",
			},
		},
		{
			name: "PromptedNewNameIgnoresOtherRemotes",
			file: existing,
			// Name: entered. Host: entered, with nothing to suggest. User,
			// port and temp dir: default.
			stdin: "3\nfresh\nnew.example.com\n1\n1\n1\n",
			exp: config.Remote{
				Name:    "fresh",
				Host:    "new.example.com",
				User:    "me",
				SSHPort: 22,
				TempDir: "~/remote-builds",
			},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			mockIO(t, test.stdin)
			remote, err := generateRemote(test.cliOpts, test.file)
			require.NoError(t, err)
			assert.Equal(t, test.exp, remote)
		})
	}
}

func TestSetupConfig(t *testing.T) {
	out := mockIO(t, "")

	path := filepath.Join(t.TempDir(), "cargo-remote", "cargo-remote.toml")
	getUserConfigPath = func() (string, error) { return path, nil }
	defer func() { getUserConfigPath = config.GetUserConfigPath }()

	first := config.Remote{Name: "a", Host: "a.example.com", User: "me", SSHPort: 22, TempDir: "~/b"}
	require.NoError(t, SetupConfig(first, false))

	second := config.Remote{Name: "b", Host: "b.example.com", User: "me", SSHPort: 2200, TempDir: "~/b"}
	require.NoError(t, SetupConfig(second, false))

	replaced := first
	replaced.Host = "new.example.com"
	require.NoError(t, SetupConfig(replaced, false))

	file, err := config.ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, []config.Remote{replaced, second}, file.Remotes)
	assert.Contains(t, out.String(), `Wrote remote "a" to `+path)
}

func TestSetupConfigProject(t *testing.T) {
	mockIO(t, "")

	projectRoot := t.TempDir()
	locateProject = func(string, string) (project.Project, error) {
		return project.Project{ProjectRoot: projectRoot, WorkspaceRoot: projectRoot}, nil
	}
	defer func() { locateProject = project.Locate }()

	remote := config.Remote{Name: "a", Host: "a.example.com", User: "me", SSHPort: 22, TempDir: "~/b"}
	require.NoError(t, SetupConfig(remote, true))

	file, err := config.ParseFile(filepath.Join(projectRoot, config.ProjectConfigName))
	require.NoError(t, err)
	assert.Equal(t, []config.Remote{remote}, file.Remotes)
}

func TestSetupConfigBadFile(t *testing.T) {
	mockIO(t, "")

	path := filepath.Join(t.TempDir(), "cargo-remote.toml")
	require.NoError(t, os.WriteFile(path, []byte("[remote]\nssh_port = \"22\"\n"), 0644))
	getUserConfigPath = func() (string, error) { return path, nil }
	defer func() { getUserConfigPath = config.GetUserConfigPath }()

	err := SetupConfig(config.Remote{Name: "a", Host: "h", User: "u", SSHPort: 1, TempDir: "/t"}, false)
	assert.Error(t, err)
	_, ok := errors.GetFriendlyError(err)
	assert.True(t, ok)
}

const projectConfig = `
[[remote]]
name = "project"
host = "project.example.com"
`

const userConfig = `
[[remote]]
name = "user"
host = "user.example.com"
ssh_port = 2200
`

func mockSources(t *testing.T, inProject bool) *bytes.Buffer {
	out := mockIO(t, "")

	dir := t.TempDir()
	paths := config.Paths{
		Project: filepath.Join(dir, config.ProjectConfigName),
		User:    filepath.Join(dir, "user.toml"),
	}
	require.NoError(t, os.WriteFile(paths.Project, []byte(projectConfig), 0644))
	require.NoError(t, os.WriteFile(paths.User, []byte(userConfig), 0644))

	origLocate, origPaths := locateProject, getPaths
	locateProject = func(string, string) (project.Project, error) {
		if !inProject {
			return project.Project{}, project.ErrNoProject
		}
		return project.Project{ProjectRoot: dir, WorkspaceRoot: dir}, nil
	}
	getPaths = func(string) (config.Paths, error) { return paths, nil }
	t.Cleanup(func() {
		locateProject, getPaths = origLocate, origPaths
	})
	return out
}

func TestShowRemote(t *testing.T) {
	out := mockSources(t, true)
	require.NoError(t, showRemote("", ""))

	var remote config.Remote
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &remote))
	assert.Equal(t, config.Remote{
		Name:    "project",
		Host:    "project.example.com",
		SSHPort: 22,
		TempDir: "~/remote-builds",
	}, remote)
	assert.Contains(t, out.String(), "host: project.example.com\n")
}

func TestShowRemoteByName(t *testing.T) {
	out := mockSources(t, true)
	require.NoError(t, showRemote("user", ""))
	assert.Contains(t, out.String(), "sshPort: 2200\n")

	err := showRemote("missing", "")
	assert.Equal(t, errors.ExitNoRemote, errors.ExitCode(err))
}

func TestListRemotes(t *testing.T) {
	out := mockSources(t, true)
	require.NoError(t, listRemotes(""))

	var listed []listedSource
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, "project", listed[0].Source)
	assert.Equal(t, []config.Remote{{Name: "project", Host: "project.example.com"}}, listed[0].Remotes)
	assert.Equal(t, "user", listed[1].Source)
	assert.Equal(t, []config.Remote{{Name: "user", Host: "user.example.com", SSHPort: 2200}},
		listed[1].Remotes)
}

func TestListRemotesOutsideProject(t *testing.T) {
	out := mockSources(t, false)
	require.NoError(t, listRemotes(""))

	var listed []listedSource
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &listed))
	require.Len(t, listed, 2)
	assert.Empty(t, listed[0].Remotes)
	assert.Equal(t, "", listed[0].Path)
	assert.Len(t, listed[1].Remotes, 1)
}
