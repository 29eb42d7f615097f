// Package audit implements the hash-chained audit log stored inside the
// vault document.
//
// Entries are kept newest first. The PrevHash of entry i is the SHA-256 of
// the canonical serialization of entry i+1 (the chronologically preceding
// entry), and the oldest entry points at GenesisHash. Editing, reordering or
// removing any stored entry breaks at least one link.
//
// The chain only detects edits made by someone who cannot re-encrypt the
// vault. A holder of both unlock factors can rewrite the whole log
// consistently; the root of trust is the vault encryption itself.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// GenesisHash is the PrevHash of the oldest entry in a chain.
var GenesisHash = strings.Repeat("0", sha256.Size*2)

// TimestampFormat is the layout used for new entries.
const TimestampFormat = time.RFC3339Nano

// Actions recorded by the vault and its collaborators.
const (
	ActionSystem    = "SYSTEM"
	ActionCreate    = "CREATE"
	ActionUpdate    = "UPDATE"
	ActionDelete    = "DELETE"
	ActionImport    = "IMPORT"
	ActionLogin     = "LOGIN"
	ActionBackup    = "BACKUP"
	ActionRestore   = "RESTORE"
	ActionExport    = "EXPORT"
	ActionHIBPAlert = "HIBP_ALERT"
	ActionHIBPClean = "HIBP_CLEAN"
)

// Entry is a single audit record.
//
// Field order is lexicographic by JSON name so that encoding/json produces
// the canonical form directly.
type Entry struct {
	Action    string `json:"action"`
	Details   string `json:"details"`
	PrevHash  string `json:"prev_hash"`
	Timestamp string `json:"timestamp"`
}

// Canonical returns the deterministic serialization hashed by the chain.
func Canonical(e Entry) []byte {
	// Marshal of a struct with only string fields cannot fail.
	data, _ := json.Marshal(e)
	return data
}

// Hash returns the hex SHA-256 of the canonical form of e.
func Hash(e Entry) string {
	sum := sha256.Sum256(Canonical(e))
	return hex.EncodeToString(sum[:])
}

// Head returns the hash the next appended entry must link to.
func Head(logs []Entry) string {
	if len(logs) == 0 {
		return GenesisHash
	}
	return Hash(logs[0])
}

// Append builds a new entry linked to the current head and returns the log
// with the entry inserted at index 0. The action is upper-cased.
func Append(logs []Entry, action, details string, now time.Time) []Entry {
	e := Entry{
		Timestamp: now.UTC().Format(TimestampFormat),
		Action:    strings.ToUpper(action),
		Details:   details,
		PrevHash:  Head(logs),
	}
	out := make([]Entry, 0, len(logs)+1)
	out = append(out, e)
	return append(out, logs...)
}

// Seal rewrites the PrevHash links of logs (newest first) so they form a
// valid chain, working from the oldest entry forward. It is used once, when
// migrating documents whose logs predate the chain.
func Seal(logs []Entry) []Entry {
	out := make([]Entry, len(logs))
	copy(out, logs)
	prev := GenesisHash
	for i := len(out) - 1; i >= 0; i-- {
		out[i].Action = strings.ToUpper(out[i].Action)
		out[i].PrevHash = prev
		prev = Hash(out[i])
	}
	return out
}

// VerifyResult contains the results of chain verification.
type VerifyResult struct {
	Valid        bool     `json:"valid"`
	RecordsTotal int      `json:"records_total"`
	Errors       []string `json:"errors,omitempty"`
}

// Verify checks every link of the chain. Indexes in the error messages are
// positions in the newest-first slice; a break at i means something is
// wrong at or before entry i.
func Verify(logs []Entry) *VerifyResult {
	result := &VerifyResult{
		Valid:        true,
		RecordsTotal: len(logs),
	}

	for i := 0; i+1 < len(logs); i++ {
		if want := Hash(logs[i+1]); logs[i].PrevHash != want {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf(
				"chain broken at record %d (%s): expected prev %s, got %s",
				i, logs[i].Action, want, logs[i].PrevHash))
		}
	}

	if n := len(logs); n > 0 && logs[n-1].PrevHash != GenesisHash {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf(
			"oldest record %d (%s) does not link to genesis", n-1, logs[n-1].Action))
	}

	return result
}

// Valid reports whether every link of the chain holds.
func Valid(logs []Entry) bool {
	return Verify(logs).Valid
}

// Time parses the entry timestamp. Legacy entries used a plain
// "2006-01-02 15:04:05" local layout; both forms are accepted.
func (e Entry) Time() (time.Time, error) {
	if t, err := time.Parse(TimestampFormat, e.Timestamp); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02 15:04:05", e.Timestamp, time.Local)
}
