package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/jwt_token"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/platform/config"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/secrets"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "fanaf", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"serve", "seed", "finalize", "import-settled", "report", "token", "hash-secret"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
}

// workspace is a console deployment backed by one SQLite file, so each
// command runs against the state the previous one left.
type workspace struct {
	t      *testing.T
	dir    string
	config string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	dir := t.TempDir()
	cfg := `instance_id: cli-test
persistence:
  backend: sqlite
sqlite:
  path: ` + filepath.Join(dir, "fanaf.db") + `
server:
  jwt_signing_key: cli-test-key
log:
  level: error
`
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return &workspace{t: t, dir: dir, config: path}
}

func (w *workspace) file(name, content string) string {
	w.t.Helper()
	path := filepath.Join(w.dir, name)
	require.NoError(w.t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (w *workspace) run(args ...string) (string, error) {
	w.t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", w.config}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

const registrationsFile = `registrations:
  - {id: A, category: member}
  - {id: B, category: non_member}
  - {id: C, category: vip}
  - {id: D, category: non_member, group: G}
  - {id: E, category: non_member, group: G}
  - {id: F, category: non_member, group: G}
`

func TestSeedFinalizeAndReport(t *testing.T) {
	w := newWorkspace(t)
	regs := w.file("registrations.yaml", registrationsFile)

	out, err := w.run("seed", regs)
	require.NoError(t, err)
	assert.Equal(t, "registered 6 new of 6 read\n", out)

	out, err = w.run("seed", regs)
	require.NoError(t, err)
	assert.Equal(t, "registered 0 new of 6 read\n", out)

	out, err = w.run("--format", "json", "finalize", "--ids", "A,B", "--mode", "cash", "--operator", "caisse-1")
	require.NoError(t, err)
	var receipt receiptOutput
	require.NoError(t, json.Unmarshal([]byte(out), &receipt))
	assert.Equal(t, []string{"A", "B"}, receipt.NewlyFinalized)
	assert.Equal(t, "750000", receipt.Amount)
	assert.Equal(t, "external", receipt.SettlementChannel)

	out, err = w.run("finalize", "--ids", "D", "--mode", "wave", "--operator", "caisse-2", "--expand")
	require.NoError(t, err)
	assert.Contains(t, out, "3 finalized by caisse-2 via wave (gateway), amount 1200000")

	out, err = w.run("finalize", "--ids", "A", "--mode", "card", "--operator", "caisse-2")
	require.NoError(t, err)
	assert.Equal(t, "nothing to finalize; already finalized: A\n", out)

	out, err = w.run("report")
	require.NoError(t, err)
	assert.Contains(t, out, "PAYMENT RECONCILIATION")
	assert.Contains(t, out, "recovery rate")
	assert.Contains(t, out, "100.00%")

	out, err = w.run("--format", "json", "report")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)))
}

func TestFinalizeRejectedBatch(t *testing.T) {
	w := newWorkspace(t)
	_, err := w.run("seed", w.file("registrations.yaml", registrationsFile))
	require.NoError(t, err)

	out, err := w.run("finalize", "--ids", "A,C,Z", "--mode", "cash", "--operator", "caisse-1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "batch rejected, nothing finalized")
	assert.Contains(t, out, "C: exempt")
	assert.Contains(t, out, "Z: unknown")

	out, err = w.run("--format", "json", "report")
	require.NoError(t, err)
	var sum struct {
		Finalized struct {
			Count int `json:"count"`
		} `json:"finalized"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Zero(t, sum.Finalized.Count)
}

func TestFinalizeFlagErrors(t *testing.T) {
	w := newWorkspace(t)

	_, err := w.run("finalize", "--ids", "A", "--mode", "paypal", "--operator", "x")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = w.run("finalize", "--ids", "A", "--mode", "cash")
	require.ErrorContains(t, err, `"operator" not set`)

	_, err = w.run("--format", "xml", "report")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestImportSettled(t *testing.T) {
	w := newWorkspace(t)
	_, err := w.run("seed", w.file("registrations.yaml", registrationsFile))
	require.NoError(t, err)
	_, err = w.run("finalize", "--ids", "A", "--mode", "cash", "--operator", "caisse-1")
	require.NoError(t, err)

	settled := w.file("settled.yaml", `settled:
  - {id: D, payment_mode: wave, operator: gateway-export}
  - {id: A, payment_mode: bank_transfer, operator: treasury}
  - {id: E, payment_mode: wave, operator: gateway-export}
`)
	out, err := w.run("--format", "json", "import-settled", settled)
	require.NoError(t, err)

	var res importOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Batches, 2)
	assert.Equal(t, []string{"D", "E"}, res.Batches[0].NewlyFinalized)
	assert.Equal(t, []string{"A"}, res.Batches[1].AlreadyFinalized)
	assert.Equal(t, 2, res.NewlyFinalized)
	assert.Equal(t, 1, res.AlreadyFinalized)
	assert.Equal(t, "800000", res.Amount)

	_, err = w.run("import-settled", filepath.Join(w.dir, "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestToken(t *testing.T) {
	w := newWorkspace(t)

	out, err := w.run("token", "--operator", "caisse-1", "--ttl", "1h")
	require.NoError(t, err)
	token := strings.TrimSpace(out)

	defaults := config.Default()
	claims, err := jwttoken.NewJWTService("cli-test-key", defaults.Server.JWTIssuer, defaults.Server.JWTAudience).
		ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "caisse-1", claims.Operator)

	_, err = w.run("token")
	require.Error(t, err)
}

func TestHashSecret(t *testing.T) {
	hashSecret := func(stdin string, args ...string) (string, error) {
		cmd := NewRootCommand()
		var out bytes.Buffer
		cmd.SetIn(strings.NewReader(stdin))
		cmd.SetOut(&out)
		cmd.SetErr(io.Discard)
		cmd.SetArgs(append(args, "hash-secret"))
		err := cmd.ExecuteContext(context.Background())
		return out.String(), err
	}

	out, err := hashSecret("correct horse\n")
	require.NoError(t, err)
	require.NoError(t, secrets.Verify("correct horse", strings.TrimSpace(out)))

	out, err = hashSecret("s3cret\n", "--format", "json")
	require.NoError(t, err)
	var got struct {
		Hash string `json:"hash"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.NoError(t, secrets.Verify("s3cret", got.Hash))

	_, err = hashSecret("")
	require.Error(t, err)
}
