package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	authorityHex = "0x1111111111111111111111111111111111111111"
	makerHex     = "0x2222222222222222222222222222222222222222"
	receiverHex  = "0x3333333333333333333333333333333333333333"
	resolverHex  = "0x4444444444444444444444444444444444444444"
	srcTokenHex  = "0x5555555555555555555555555555555555555555"
	dstTokenHex  = "0x6666666666666666666666666666666666666666"
	protocolHex  = "0x7777777777777777777777777777777777777777"
)

type cliHarness struct {
	t      *testing.T
	config string
	order  string
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "fusion.toml")
	contents := fmt.Sprintf(`DataDir = %q
NetworkName = "cli-test"
HoldingReserve = 1000
WhitelistBootstrap = %q
LogEnv = "test"
LogLevel = "error"
LogFile = %q
LogMaxSizeMB = 1
`, filepath.Join(dir, "state"), authorityHex, filepath.Join(dir, "fusion.log"))
	require.NoError(t, os.WriteFile(configPath, []byte(contents), 0o644))

	orderPath := filepath.Join(dir, "order.yaml")
	order := fmt.Sprintf(`id: 7
maker: %q
receiver: %q
srcAsset: %q
dstAsset: %q
srcAmount: 1000000
minDstAmount: 2000000
estimatedDstAmount: 2000000
expirationTime: 2000
fee:
  surplusPercentage: 50
  maxCancellationPremium: 500
  protocolPayout: %q
auction:
  startTime: 1000
  duration: 1000
  initialRateBump: 10000
cancellationAuctionDuration: 1000
`, makerHex, receiverHex, srcTokenHex, dstTokenHex, protocolHex)
	require.NoError(t, os.WriteFile(orderPath, []byte(order), 0o644))

	original := cliNow
	cliNow = func() int64 { return 1000 }
	t.Cleanup(func() { cliNow = original })
	return &cliHarness{t: t, config: configPath, order: orderPath}
}

func (h *cliHarness) run(args ...string) (int, string, string) {
	h.t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"--config", h.config}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (h *cliHarness) mustRun(args ...string) string {
	h.t.Helper()
	code, stdout, stderr := h.run(args...)
	require.Equalf(h.t, 0, code, "fusionctl %s: %s", strings.Join(args, " "), stderr)
	return stdout
}

// lastJSON decodes the final JSON document written to stdout; events precede it.
func lastJSON(t *testing.T, out string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(out))
	var last map[string]any
	for dec.More() {
		var doc map[string]any
		require.NoError(t, dec.Decode(&doc))
		last = doc
	}
	require.NotNil(t, last)
	return last
}

func TestUsageAndUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Equal(t, 1, run(nil, &stdout, &stderr))
	require.Contains(t, stderr.String(), "Usage:")

	stderr.Reset()
	require.Equal(t, 1, run([]string{"bogus"}, &stdout, &stderr))
	require.Contains(t, stderr.String(), "Unknown command: bogus")
}

func TestLifecycleThroughCLI(t *testing.T) {
	h := newCLIHarness(t)

	code, _, stderr := h.run("init-whitelist", "--as", makerHex)
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "bootstrap")

	h.mustRun("init-whitelist", "--as", authorityHex)
	h.mustRun("register-resolver", "--as", authorityHex, "--target", resolverHex)
	h.mustRun("mint", "--to", makerHex, "--asset", "native", "--amount", "1000")
	h.mustRun("mint", "--to", makerHex, "--asset", srcTokenHex, "--amount", "1", "--decimals", "6")
	h.mustRun("mint", "--to", resolverHex, "--asset", dstTokenHex, "--amount", "5000000")

	created := lastJSON(t, h.mustRun("create", "--order", h.order))
	require.Equal(t, "external("+strings.ToLower(makerHex)+")", strings.ToLower(created["funding"].(string)))

	status := lastJSON(t, h.mustRun("status", "--order", h.order))
	require.Equal(t, "open", status["status"])
	require.Equal(t, "1000000", status["remaining"])

	cliNow = func() int64 { return 1500 }
	out := h.mustRun("fill", "--order", h.order, "--as", resolverHex, "--amount", "0.5", "--decimals", "6")
	require.Contains(t, out, "fusion.order.filled")
	fill := lastJSON(t, out)
	require.EqualValues(t, 1_050_000, fill["dstAmount"])
	require.EqualValues(t, 500_000, fill["remaining"])

	code, _, stderr = h.run("fill", "--order", h.order, "--as", makerHex, "--amount", "1")
	require.Equal(t, 1, code)
	require.Contains(t, stderr, "unauthorized")

	cliNow = func() int64 { return 2500 }
	cancelled := lastJSON(t, h.mustRun("cancel-by-resolver", "--order", h.order, "--as", resolverHex))
	require.EqualValues(t, 250, cancelled["incentive"])
	require.EqualValues(t, 750, cancelled["makerRefund"])

	balance := lastJSON(t, h.mustRun("balance", "--owner", makerHex, "--asset", srcTokenHex, "--decimals", "6"))
	require.Equal(t, "0.500000", balance["balance"])
	balance = lastJSON(t, h.mustRun("balance", "--owner", resolverHex))
	require.Equal(t, "250", balance["balance"])

	status = lastJSON(t, h.mustRun("status", "--order", h.order))
	require.Equal(t, "closed", status["status"])
}

func TestQuoteRendersDecimals(t *testing.T) {
	h := newCLIHarness(t)
	var stdout, stderr bytes.Buffer
	code := run([]string{"quote", "--order", h.order, "--amount", "1", "--src-decimals", "6", "--dst-decimals", "6", "--at", "1500"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	quote := lastJSON(t, stdout.String())
	require.Equal(t, "5.000%", quote["rateBump"])
	require.Equal(t, "2.100000", quote["dstAmount"])
	require.Equal(t, "2.100000", quote["makerAmount"])
}

func TestParseAmount(t *testing.T) {
	got, err := parseAmount("1_000", 0)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), got)

	got, err = parseAmount("1.25", 2)
	require.NoError(t, err)
	require.Equal(t, uint64(125), got)

	_, err = parseAmount("1.255", 2)
	require.ErrorContains(t, err, "decimal places")
	_, err = parseAmount("-1", 0)
	require.Error(t, err)
	_, err = parseAmount("18446744073709551616", 0)
	require.ErrorContains(t, err, "exceeds")
}
