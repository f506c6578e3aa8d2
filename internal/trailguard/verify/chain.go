package verify

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/vaibhaw-/TrailGuard/internal/trailguard/logger"
)

// maxLineSize bounds a single NDJSON alert line. Alerts embed the raw
// CloudTrail record, which can exceed bufio's 64KiB default.
const maxLineSize = 16 * 1024 * 1024

func newLineScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return sc
}

func chainHash(prev, canon string) string {
	h := sha256.Sum256([]byte(prev + "|" + canon))
	return hex.EncodeToString(h[:])
}

// ComputeChain reads NDJSON alerts from input and writes them to output with
// chainPrev, chainHash and chainIndex added.
//
// Each hash is SHA256(previous hash + "|" + canonical alert). The chain
// continues from state when given, otherwise from the zero hash at index 0.
// It returns the new head state and the number of alerts sealed.
func ComputeChain(input io.Reader, output io.Writer, state *ChainState) (*ChainState, int, error) {
	log := logger.L()
	if state == nil {
		state = newState()
	}

	start := time.Now()
	log.Debugw("verify.seal: start", "start_index", state.LastChainIndex)

	scanner := newLineScanner(input)
	writer := bufio.NewWriter(output)
	defer writer.Flush()

	head := state.LastHeadHash
	index := state.LastChainIndex
	processed := 0

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var doc map[string]interface{}
		if err := json.Unmarshal(line, &doc); err != nil {
			return nil, processed, fmt.Errorf("decode alert: %w", err)
		}

		canon, err := Canonicalize(doc)
		if err != nil {
			return nil, processed, fmt.Errorf("canonicalize: %w", err)
		}
		next := chainHash(head, canon)

		index++
		doc[FieldPrev] = head
		doc[FieldHash] = next
		doc[FieldIndex] = index

		out, err := json.Marshal(doc)
		if err != nil {
			return nil, processed, fmt.Errorf("encode alert: %w", err)
		}
		if _, err := writer.Write(append(out, '\n')); err != nil {
			return nil, processed, fmt.Errorf("write alert: %w", err)
		}

		head = next
		processed++
	}
	if err := scanner.Err(); err != nil {
		return nil, processed, fmt.Errorf("scan input: %w", err)
	}

	log.Infow("verify.seal: done", "alerts", processed, "end_index", index, "duration", time.Since(start))
	return &ChainState{LastChainIndex: index, LastHeadHash: head}, processed, nil
}

// VerifyChain recomputes every hash of a sealed export. It returns the chain
// indices of lines whose hash, predecessor link or position does not match,
// the final head hash and the number of lines read.
//
// The first line may continue an earlier chain; its chainPrev and chainIndex
// seed the check instead of the zero hash.
func VerifyChain(input io.Reader) ([]int, string, int, error) {
	log := logger.L()
	start := time.Now()
	log.Debugw("verify.check: start")

	scanner := newLineScanner(input)
	tampered := make([]int, 0)
	head := ""
	expectIdx := 0
	processed := 0

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var doc map[string]interface{}
		if err := json.Unmarshal(line, &doc); err != nil {
			return tampered, head, processed, fmt.Errorf("decode alert: %w", err)
		}

		prev, _ := doc[FieldPrev].(string)
		got, _ := doc[FieldHash].(string)
		idxFloat, _ := doc[FieldIndex].(float64)
		idx := int(idxFloat)

		if processed == 0 {
			head = prev
			expectIdx = idx
			if idx <= 1 {
				head = zeroHash()
				expectIdx = 1
			}
		}

		canon, err := Canonicalize(doc)
		if err != nil {
			return tampered, head, processed, fmt.Errorf("canonicalize: %w", err)
		}
		want := chainHash(prev, canon)

		if prev != head || want != got || idx != expectIdx || got == "" {
			tampered = append(tampered, idx)
		}

		head = got
		expectIdx++
		processed++
	}
	if err := scanner.Err(); err != nil {
		return tampered, head, processed, fmt.Errorf("scan input: %w", err)
	}
	if processed == 0 {
		head = zeroHash()
	}

	log.Infow("verify.check: done", "alerts", processed, "tampered", len(tampered), "duration", time.Since(start))
	return tampered, head, processed, nil
}
