package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/etnz/finance/settings"
)

// EnvVerbose is set for extensions when -v is on.
const EnvVerbose = "FIN_VERBOSE"

// RunExtension attempts to find and execute an external fin-<subcommand> binary.
// It returns (true, exitCode) if an extension was found and executed,
// and (false, 0) if no extension was found.
//
// Global flags are passed as the environment variables read by the settings,
// so that the extension works on the same ledger.
func RunExtension(subcommand string, args []string) (bool, int) {
	lp, err := exec.LookPath("fin-" + subcommand)
	if err != nil {
		return false, 0
	}

	cmd := exec.Command(lp, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	if *ledgerFile != "" {
		cmd.Env = append(cmd.Env, settings.EnvLedger+"="+*ledgerFile)
	}
	cmd.Env = append(cmd.Env, EnvVerbose+"="+strconv.FormatBool(*Verbose))

	if err := cmd.Run(); err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return true, exitError.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing external command %q: %v\n", lp, err)
		return true, 1
	}
	return true, 0
}
