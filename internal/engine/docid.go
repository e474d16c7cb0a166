package engine

import "fmt"

// DocumentID locates a document within the storage engine: the page it
// lives on plus its slot within that page's directory. It is stable across
// in-place updates and changes only when a document relocates to a
// different slot or page.
type DocumentID struct {
	PageID uint64
	SlotID uint16
}

// String renders the id as "page:slot", the same form the CLI and HTTP
// explorer accept back as input, so a printed id can be pasted straight
// into the next command.
func (id DocumentID) String() string {
	return fmt.Sprintf("%d:%d", id.PageID, id.SlotID)
}
