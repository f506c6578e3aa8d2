// Package verify seals alert exports into a SHA-256 hash chain and checks
// sealed exports for tampering.
package verify

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/config"
	"github.com/vaibhaw-/TrailGuard/internal/trailguard/logger"
)

// ErrChainBroken is returned by RunVerify when a check finds tampered lines.
var ErrChainBroken = errors.New("alert chain broken")

type VerifyArgs struct {
	InputFile  string
	OutputFile string
	Seal       bool
}

// RunVerify seals an alert export (Seal set) or checks a sealed one.
// Sealing continues the chain recorded in cfg.Export.StateFile.
func RunVerify(cfg *config.Config, args VerifyArgs) (*VerifySummary, error) {
	log := logger.L()
	start := time.Now().UTC()
	mode := "check"
	if args.Seal {
		mode = "seal"
	}
	log.Infow("verify start", "mode", mode, "input", args.InputFile, "output", args.OutputFile)

	var in io.Reader = os.Stdin
	if args.InputFile != "" {
		f, err := os.Open(args.InputFile)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	summary := &VerifySummary{
		Phase:      "verify",
		Mode:       mode,
		InputFile:  args.InputFile,
		OutputFile: args.OutputFile,
		StartTime:  start.Format(time.RFC3339),
	}

	var stateFile, runLog string
	if cfg != nil {
		stateFile = cfg.Export.StateFile
		runLog = cfg.Logging.RunLog
	}

	var result error
	if args.Seal {
		var out io.Writer = os.Stdout
		if args.OutputFile != "" {
			f, err := os.Create(args.OutputFile)
			if err != nil {
				return nil, fmt.Errorf("create output: %w", err)
			}
			defer f.Close()
			out = f
		}

		state, err := LoadState(stateFile)
		if err != nil {
			return nil, err
		}
		log.Debugw("state loaded", "index", state.LastChainIndex, "head", state.LastHeadHash)
		next, processed, err := ComputeChain(in, out, state)
		if err != nil {
			return nil, err
		}
		if err := SaveState(stateFile, next); err != nil {
			return nil, err
		}
		summary.AlertsProcessed = processed
		summary.HeadHash = next.LastHeadHash
		summary.Status = "sealed"
	} else {
		tampered, head, processed, err := VerifyChain(in)
		if err != nil {
			return nil, err
		}
		summary.AlertsProcessed = processed
		summary.TamperedAlerts = tampered
		summary.HeadHash = head
		summary.Status = "pass"
		if len(tampered) > 0 {
			summary.Status = "fail"
			result = fmt.Errorf("%w: %d tampered alert(s)", ErrChainBroken, len(tampered))
		}
	}
	summary.EndTime = time.Now().UTC().Format(time.RFC3339)

	if runLog != "" {
		if err := appendRunLog(runLog, summary); err != nil {
			log.Warnw("failed to write run log", "path", runLog, "err", err.Error())
		}
	}
	log.Infow("verify done", "mode", mode, "alerts", summary.AlertsProcessed, "status", summary.Status)
	return summary, result
}

func appendRunLog(path string, summary *VerifySummary) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(summary)
}
