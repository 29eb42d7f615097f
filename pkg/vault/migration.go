package vault

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/forest6511/harpocrates/pkg/audit"
)

// CurrentVersion is the document version written by this build.
const CurrentVersion = "2.0"

// migration upgrades a document from one version to the next.
type migration struct {
	from     string
	to       string
	describe string
	apply    func(doc *Document) error
}

// migrations is the ordered upgrade chain. Each step's from equals the
// previous step's to, and the last step ends at CurrentVersion.
var migrations = []migration{
	{
		from:     "1.4",
		to:       "1.5",
		describe: "Enhanced Security",
		apply:    migrateAddLogs,
	},
	{
		from:     "1.5",
		to:       "2.0",
		describe: "Stable IDs and Hash Chain",
		apply:    migrateIDsAndChain,
	},
}

// migrate upgrades doc in place to CurrentVersion and returns the versions it
// passed through. Versions outside the chain are treated as corruption.
func migrate(doc *Document, now time.Time) ([]string, error) {
	path, err := migrationPath(doc.Version)
	if err != nil {
		return nil, err
	}

	steps := make([]string, 0, len(path))
	for _, m := range path {
		if err := m.apply(doc); err != nil {
			return nil, fmt.Errorf("vault: migration %s -> %s failed: %w", m.from, m.to, err)
		}
		doc.Version = m.to
		doc.Logs = audit.Append(doc.Logs, audit.ActionSystem,
			fmt.Sprintf("Upgraded to %s (%s)", m.to, m.describe), now)
		steps = append(steps, m.to)
	}
	return steps, nil
}

// migrationPath returns the steps needed to bring version up to date.
func migrationPath(version string) ([]migration, error) {
	if version == CurrentVersion {
		return nil, nil
	}
	for i, m := range migrations {
		if m.from == version {
			return migrations[i:], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, version)
}

// migrateAddLogs: 1.4 documents predate the audit log.
func migrateAddLogs(doc *Document) error {
	if doc.Logs == nil {
		doc.Logs = []audit.Entry{}
	}
	if doc.Entries == nil {
		doc.Entries = []Entry{}
	}
	return nil
}

// migrateIDsAndChain assigns ids to entries created before stable ids and
// links the legacy log into a hash chain.
func migrateIDsAndChain(doc *Document) error {
	for i := range doc.Entries {
		if doc.Entries[i].ID == "" {
			doc.Entries[i].ID = uuid.NewString()
		}
	}
	doc.Logs = audit.Seal(doc.Logs)
	return nil
}
