package archiver

import (
	"errors"
	"fmt"
)

// Kind classifies a problem met during a run.
type Kind int

const (
	// ItemMissing: a configured item does not exist.
	ItemMissing Kind = iota
	// FileSkipped: a non-regular file (socket, fifo, device) inside an item.
	FileSkipped
	// FileFailed: one file or subdirectory could not be read or added.
	FileFailed
	// ItemFailed: an item could not be processed at all.
	ItemFailed
	// ArchiveFailed: the archive itself could not be produced.
	ArchiveFailed
	// PruneFailed: the retention pass stopped on an error.
	PruneFailed
)

func (k Kind) String() string {
	switch k {
	case ItemMissing:
		return "item_missing"
	case FileSkipped:
		return "file_skipped"
	case FileFailed:
		return "file_failed"
	case ItemFailed:
		return "item_failed"
	case ArchiveFailed:
		return "archive_failed"
	case PruneFailed:
		return "prune_failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Action is what a run does after recording an issue.
type Action int

const (
	Continue Action = iota
	SkipFile
	AbortItem
	AbortRun
	AbortPrune
)

func (a Action) String() string {
	switch a {
	case Continue:
		return "continue"
	case SkipFile:
		return "skip_file"
	case AbortItem:
		return "abort_item"
	case AbortRun:
		return "abort_run"
	case AbortPrune:
		return "abort_prune"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

var policy = map[Kind]Action{
	ItemMissing:   Continue,
	FileSkipped:   Continue,
	FileFailed:    SkipFile,
	ItemFailed:    AbortItem,
	ArchiveFailed: AbortRun,
	PruneFailed:   AbortPrune,
}

// PolicyFor returns the action taken for issues of kind k. Unknown kinds
// abort the run.
func PolicyFor(k Kind) Action {
	if a, ok := policy[k]; ok {
		return a
	}
	return AbortRun
}

// Issue is one recorded problem. Item is the configured item it belongs to
// (empty for run-level issues) and Path the file system path involved.
type Issue struct {
	Kind Kind
	Item string
	Path string
	Err  error
}

func (i Issue) Error() string {
	switch {
	case i.Path != "" && i.Err != nil:
		return fmt.Sprintf("%s: %s: %v", i.Kind, i.Path, i.Err)
	case i.Err != nil:
		return fmt.Sprintf("%s: %v", i.Kind, i.Err)
	default:
		return fmt.Sprintf("%s: %s", i.Kind, i.Path)
	}
}

func (i Issue) Unwrap() error { return i.Err }

// errAbortItem ends the current item; the run goes on with the next one.
var errAbortItem = errors.New("item aborted")

// AbortError ends a run whose policy says an issue is fatal.
type AbortError struct {
	Issue Issue
}

func (e *AbortError) Error() string {
	return "aborted: " + e.Issue.Error()
}

func (e *AbortError) Unwrap() error { return e.Issue }
