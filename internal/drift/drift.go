// Package drift compares a table's expected column set against the physical
// schema using merkle hashing. The orchestrator runs it after every update as
// a non-fatal consistency check: a mismatch is reported, never raised.
package drift

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/cbergoon/merkletree"

	"github.com/enfyra/server-sub005/internal/syncerr"
)

// columnContent implements merkletree.Content for column-level hashing.
type columnContent struct {
	name string
}

func (c columnContent) CalculateHash() ([]byte, error) {
	h := sha256.Sum256([]byte(c.name))
	return h[:], nil
}

func (c columnContent) Equals(other merkletree.Content) (bool, error) {
	o, ok := other.(columnContent)
	if !ok {
		return false, nil
	}
	return c.name == o.name, nil
}

// Fingerprint computes the merkle root of a column-name set. The input is
// sorted first so the fingerprint is order-independent.
func Fingerprint(columns []string) (string, error) {
	if len(columns) == 0 {
		return emptyHash(), nil
	}

	sorted := append([]string(nil), columns...)
	sort.Strings(sorted)

	contents := make([]merkletree.Content, 0, len(sorted))
	for _, name := range sorted {
		contents = append(contents, columnContent{name: name})
	}

	tree, err := merkletree.NewTree(contents)
	if err != nil {
		return "", syncerr.Wrap(syncerr.ErrIntrospection, err, "building column merkle tree")
	}
	return hex.EncodeToString(tree.MerkleRoot()), nil
}

func emptyHash() string {
	h := sha256.Sum256(nil)
	return hex.EncodeToString(h[:])
}

// Report describes a comparison between expected and actual column sets.
type Report struct {
	Match        bool
	ExpectedRoot string
	ActualRoot   string
	// Missing lists expected columns absent from the database.
	Missing []string
	// Unexpected lists database columns absent from the description.
	Unexpected []string
}

// Check compares the expected column set against the actual one. Roots are
// compared first; the name-level diff is only computed on mismatch.
func Check(expected, actual []string) (*Report, error) {
	expectedRoot, err := Fingerprint(expected)
	if err != nil {
		return nil, err
	}
	actualRoot, err := Fingerprint(actual)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Match:        expectedRoot == actualRoot,
		ExpectedRoot: expectedRoot,
		ActualRoot:   actualRoot,
	}
	if report.Match {
		return report, nil
	}

	actualSet := make(map[string]bool, len(actual))
	for _, name := range actual {
		actualSet[name] = true
	}
	expectedSet := make(map[string]bool, len(expected))
	for _, name := range expected {
		expectedSet[name] = true
	}

	for _, name := range expected {
		if !actualSet[name] {
			report.Missing = append(report.Missing, name)
		}
	}
	for _, name := range actual {
		if !expectedSet[name] {
			report.Unexpected = append(report.Unexpected, name)
		}
	}
	sort.Strings(report.Missing)
	sort.Strings(report.Unexpected)

	return report, nil
}
