package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/reticula"
	"github.com/aretw0/reticula/internal/config"
	"github.com/aretw0/reticula/pkg/newick"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	// Keep tests independent of a reticula.yaml in the working directory.
	cmd.SetArgs(append(args, "--config", writeFile(t, "reticula.yaml", "log_level: error\n")))
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestInferCommand_Stdin(t *testing.T) {
	out, err := run(t, "((A,B),(C,D));((A,C),(B,D));", "infer")
	require.NoError(t, err)

	n, err := newick.ParseNetwork(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Len(t, n.Reticulations(), 1)
}

func TestInferCommand_FilesAndOutgroup(t *testing.T) {
	a := writeFile(t, "a.nwk", "((A,B),(C,(D,E)));")
	b := writeFile(t, "b.nwk", "((B,A),((E,D),C));")

	out, err := run(t, "", "infer", a, b, "--outgroup", "A")
	require.NoError(t, err)
	assert.Equal(t, "(A,(B,(C,(D,E))));\n", out)
}

func TestInferCommand_Summary(t *testing.T) {
	out, err := run(t, "((A,B),(C,D));((A,C),(B,D));", "infer", "--summary", "--cache", "memory")
	require.NoError(t, err)
	assert.Contains(t, out, "# Inferred network")
	assert.Contains(t, out, "| Reticulations | 1 |")
	assert.Contains(t, out, "| Rooting | fallback |")
}

func TestInferCommand_InputError(t *testing.T) {
	_, err := run(t, "((A,B),(C,D)", "infer")
	require.Error(t, err)
	assert.True(t, reticula.IsInputError(err))
	assert.ErrorIs(t, err, newick.ErrUnbalancedParentheses)
}

func TestInferCommand_EmptyInput(t *testing.T) {
	_, err := run(t, "  \n", "infer")
	assert.ErrorContains(t, err, "no input trees")
}

func TestInferCommand_InvalidFlags(t *testing.T) {
	_, err := run(t, "(A,B);", "infer", "--cache", "memcached")
	assert.ErrorIs(t, err, config.ErrInvalid)

	_, err = run(t, "(A,B);", "infer", "--conflict-threshold=-1")
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestInferCommand_MissingExplicitConfig(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("(A,B);"))
	cmd.SetArgs([]string{"infer", "--config", filepath.Join(t.TempDir(), "absent.yaml")})
	assert.Error(t, cmd.Execute())
}

func TestInferCommand_FileCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	cfg := writeFile(t, "reticula.yaml", "log_level: error\ncache:\n  backend: file\n  dir: "+dir+"\n")

	for i := 0; i < 2; i++ {
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetIn(strings.NewReader("((A,B),(C,D));((A,C),(B,D));"))
		cmd.SetArgs([]string{"infer", "--summary", "--config", cfg})
		require.NoError(t, cmd.Execute())
		if i == 1 {
			assert.Contains(t, out.String(), "| Source | cache |")
		}
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCacheCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	cfg := writeFile(t, "reticula.yaml", "log_level: error\ncache:\n  backend: file\n  dir: "+dir+"\n")
	exec := func(stdin string, args ...string) string {
		t.Helper()
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetArgs(append(args, "--config", cfg))
		require.NoError(t, cmd.Execute())
		return out.String()
	}

	network := strings.TrimSpace(exec("((A,B),(C,D));((A,C),(B,D));", "infer"))
	key := reticula.New().Key("((A,B),(C,D));((A,C),(B,D));\n")

	list := exec("", "cache", "list")
	assert.Contains(t, list, "RETICULATIONS")
	assert.Contains(t, list, key)
	assert.Equal(t, network, strings.TrimSpace(exec("", "cache", "show", key)))

	assert.Equal(t, "removed 1 entries\n", exec("", "cache", "rm", "--all"))
	assert.NotContains(t, exec("", "cache", "list"), key)
}

func TestCacheCommand_Errors(t *testing.T) {
	_, err := run(t, "", "cache", "list")
	assert.ErrorContains(t, err, "no cache backend configured")

	_, err = run(t, "", "cache", "list", "--cache", "memory")
	assert.Error(t, err)

	_, err = run(t, "", "cache", "rm", "--cache", "file")
	assert.ErrorContains(t, err, "--all")
}

func TestInspectCommand(t *testing.T) {
	out, err := run(t, "(A:0.1,(B:0.2,C:0.3)X:0.4)Root;", "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "tree 1: (A:0.1,(B:0.2,C:0.3)X:0.4)Root;")
	assert.Contains(t, out, "└── X:0.4")
	assert.Contains(t, out, "preorder:  Root A X B C")
	assert.Contains(t, out, "taxa: A B C")
}

func TestInspectCommand_Network(t *testing.T) {
	out, err := run(t, "(((A)#H1,B),(#H1.2,C),D);", "inspect", "--network")
	require.NoError(t, err)
	assert.Contains(t, out, "#H1 (ref)")
	assert.Contains(t, out, "reticulations: 1")
}

func TestGraphCommand(t *testing.T) {
	out, err := run(t, "((A,B),(C,D));((A,C),(B,D));", "graph", "--highlight", "A")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, "-.->")
	assert.Contains(t, out, "highlight;")
}

func TestGraphCommand_Network(t *testing.T) {
	out, err := run(t, "(((A)#H1,B),(#H1.2,C),D);", "graph", "--network")
	require.NoError(t, err)
	assert.Contains(t, out, "n5 -.-> n2")
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "reticula version "+reticula.Version+"\n", out)
}

func TestReadInput(t *testing.T) {
	a := writeFile(t, "a.nwk", "(A,B);")
	got, err := readInput([]string{a, "-"}, strings.NewReader("(C,D);"))
	require.NoError(t, err)
	assert.Equal(t, "(A,B);\n(C,D);\n", got)

	_, err = readInput([]string{filepath.Join(t.TempDir(), "nope.nwk")}, nil)
	assert.Error(t, err)
}
