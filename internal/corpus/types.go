package corpus

import "time"

// The stored records are full API payloads; these types read back the
// fields the dataset uses and ignore the rest.

// Label is one label attached to an issue or pull request.
type Label struct {
	Name string `json:"name"`
}

// Actor is the user behind an item.
type Actor struct {
	ID int64 `json:"id"`
}

// Milestone is the milestone a pull request is assigned to.
type Milestone struct {
	Title string `json:"title"`
}

// Issue is a stored issue record. A null state_reason reads as the
// empty string and a null user as a nil Actor.
type Issue struct {
	Number            int       `json:"number"`
	Title             string    `json:"title"`
	CreatedAt         time.Time `json:"created_at"`
	User              *Actor    `json:"user"`
	AuthorAssociation string    `json:"author_association"`
	Labels            []Label   `json:"labels"`
	State             string    `json:"state"`
	StateReason       string    `json:"state_reason"`
}

// Pull is a stored pull request record. Null timestamps read as the
// zero time and null booleans as false. LinkedIssues is the field the
// crawler folded in, listing the issues the pull's body closes.
type Pull struct {
	Number         int        `json:"number"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	MergedAt       time.Time  `json:"merged_at"`
	Comments       int        `json:"comments"`
	ReviewComments int        `json:"review_comments"`
	Commits        int        `json:"commits"`
	Additions      int        `json:"additions"`
	Deletions      int        `json:"deletions"`
	ChangedFiles   int        `json:"changed_files"`
	Labels         []Label    `json:"labels"`
	Milestone      *Milestone `json:"milestone"`
	State          string     `json:"state"`
	Locked         bool       `json:"locked"`
	Draft          bool       `json:"draft"`
	Merged         bool       `json:"merged"`
	Mergeable      bool       `json:"mergeable"`
	MergeableState string     `json:"mergeable_state"`
	Rebaseable     bool       `json:"rebaseable"`
	LinkedIssues   []int      `json:"linked_issue_numbers"`
}
