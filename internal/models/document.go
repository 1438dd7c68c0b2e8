package models

import "time"

// Derivation operations recorded in a document's lineage.
const (
	OpMerge    = "merge"
	OpSplit    = "split"
	OpRotate   = "rotate"
	OpAnnotate = "annotate"
)

// PageRange is a 0-based, half-open interval [Start, End) of page indices.
type PageRange struct {
	Start int `json:"start" firestore:"start"`
	End   int `json:"end" firestore:"end"`
}

// Lineage records how a derived document was produced. Originals carry no
// lineage. A lineage source id is historical metadata, not a live reference:
// the source document may have been deleted since, and consumers must treat a
// non-resolvable ancestor as unavailable rather than as corruption.
type Lineage struct {
	Operation  string     `json:"operation" firestore:"operation"`
	Parent     string     `json:"parent,omitempty" firestore:"parent,omitempty"`
	MergedFrom []string   `json:"mergedFrom,omitempty" firestore:"mergedFrom,omitempty"`
	SplitFrom  string     `json:"splitFrom,omitempty" firestore:"splitFrom,omitempty"`
	PageRange  *PageRange `json:"pageRange,omitempty" firestore:"pageRange,omitempty"`
}

// DocumentRecord is the metadata for one stored PDF, original or derived.
type DocumentRecord struct {
	ID           string    `json:"id" firestore:"id"`
	OriginalName string    `json:"originalName,omitempty" firestore:"originalName,omitempty"`
	StorageKey   string    `json:"storageKey" firestore:"storageKey"`
	SizeBytes    int64     `json:"sizeBytes" firestore:"sizeBytes"`
	PageCount    int       `json:"pageCount" firestore:"pageCount"`
	ContentHash  string    `json:"contentHash,omitempty" firestore:"contentHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt" firestore:"createdAt"`
	TextPreview  string    `json:"textPreview,omitempty" firestore:"textPreview,omitempty"`
	Lineage      *Lineage  `json:"lineage,omitempty" firestore:"lineage,omitempty"`
}

// DownloadName returns the filename a client should save this document as.
func (r *DocumentRecord) DownloadName() string {
	if r.OriginalName != "" {
		return r.OriginalName
	}
	return r.ID + ".pdf"
}
