package keyhash_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"fjacquet/camt-attest/cmd/keyhash"
	"fjacquet/camt-attest/cmd/root"
	"fjacquet/camt-attest/internal/container"
	"fjacquet/camt-attest/internal/ebicstest"
	"fjacquet/camt-attest/internal/logging"
	"fjacquet/camt-attest/internal/signature"
	"fjacquet/camt-attest/internal/verifyerror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	root.Init()
	root.Cmd.AddCommand(keyhash.Cmd)
	os.Exit(m.Run())
}

func execute(t *testing.T, cfg string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	wd, wdErr := os.Getwd()
	require.NoError(t, wdErr)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	root.ContainerOptions = []container.Option{container.WithLogger(logging.NewMockLogger())}
	t.Cleanup(func() { root.ContainerOptions = nil })

	cfgFile := filepath.Join(dir, "attest.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(cfg), 0o600))

	var out bytes.Buffer
	root.Cmd.SetOut(&out)
	root.Cmd.SetErr(&bytes.Buffer{})
	root.Cmd.SetArgs([]string{"keyhash", "--config", cfgFile})
	err := root.Cmd.Execute()
	return out.String(), err
}

func TestKeyhashCommand_Decimal(t *testing.T) {
	resp := ebicstest.New(t, ebicstest.Options{})
	want := signature.KeyHash(&resp.BankKey.PublicKey)

	out, err := execute(t, "keys:\n  bank_modulus: \""+resp.BankModulus()+"\"\n  bank_key_hash: \""+want+"\"\n")
	require.NoError(t, err)
	assert.Equal(t, want+"\n", out)
}

func TestKeyhashCommand_PEM(t *testing.T) {
	resp := ebicstest.New(t, ebicstest.Options{})
	pemFile := filepath.Join(t.TempDir(), "bank.pem")
	require.NoError(t, os.WriteFile(pemFile, resp.BankPublicPEM(t), 0o600))

	out, err := execute(t, "keys:\n  bank_pem: "+pemFile+"\n")
	require.NoError(t, err)
	assert.Equal(t, signature.KeyHash(&resp.BankKey.PublicKey)+"\n", out)
}

func TestKeyhashCommand_Errors(t *testing.T) {
	resp := ebicstest.New(t, ebicstest.Options{})

	_, err := execute(t, "keys:\n  bank_modulus: \""+resp.BankModulus()+"\"\n  bank_key_hash: \"00ff\"\n")
	assert.True(t, verifyerror.IsKind(err, verifyerror.KindIntegrityMismatch))

	_, err = execute(t, "log:\n  level: info\n")
	var missing *verifyerror.MissingFieldError
	assert.ErrorAs(t, err, &missing)
}
