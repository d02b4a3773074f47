package collection

import "fmt"

// NoticeKind classifies a Notice
type NoticeKind string

const (
	// NoticeRecovered means stored data could not be read and seeds were used
	NoticeRecovered NoticeKind = "recovered"
	// NoticeDropped means some stored records were invalid and skipped
	NoticeDropped NoticeKind = "dropped"
	// NoticeSaveFailed means a mutation could not be persisted
	NoticeSaveFailed NoticeKind = "save_failed"
)

// Notice is a non-fatal event the presentation layer should show the user.
// Collections never fail an operation for these; they report and continue.
type Notice struct {
	Kind NoticeKind
	Key  string
	// Count is the number of records affected
	Count int
	Err   error
}

func (n Notice) String() string {
	switch n.Kind {
	case NoticeRecovered:
		return fmt.Sprintf("%s: stored data unreadable, started from %d seed records: %v", n.Key, n.Count, n.Err)
	case NoticeDropped:
		return fmt.Sprintf("%s: dropped %d invalid stored records", n.Key, n.Count)
	case NoticeSaveFailed:
		return fmt.Sprintf("%s: changes to %d records not saved: %v", n.Key, n.Count, n.Err)
	}
	return fmt.Sprintf("%s: %s", n.Key, n.Kind)
}

// NoticeHandler receives notices as they happen
type NoticeHandler func(Notice)
