package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/florenceboettger/ghpr-tools/internal/corpus"
	"github.com/florenceboettger/ghpr-tools/internal/logger"
)

// sectionAttributes are the per-section measures, in column order.
var sectionAttributes = []string{"changed_files", "additions", "deletions"}

// baseColumns is the fixed head of every dataset row. The #Lst and
// #Ord suffixes are type annotations for the training pipeline that
// consumes the file.
var baseColumns = []string{
	"issue_number",
	"issue_title",
	"issue_created_at",
	"issue_author_id",
	"issue_author_association",
	"issue_labels#Lst",
	"issue_state",
	"issue_state_reason",
	"pull_number",
	"pull_created_at",
	"pull_updated_at",
	"pull_merged_at",
	"pull_comments",
	"pull_review_comments",
	"pull_commits",
	"pull_additions",
	"pull_deletions",
	"pull_changed_files",
	"pull_labels#Lst",
	"pull_milestone#Ord(none,-1,December 2025,January 2026,February 2026,March 2026,April 2026,On Deck,Backlog,Backlog Candidates)",
	"pull_state",
	"pull_locked",
	"pull_draft",
	"pull_merged",
	"pull_mergeable",
	"pull_mergeable_state",
	"pull_rebaseable",
}

// authorAssociationRank encodes the association strings ordinally.
var authorAssociationRank = map[string]int{
	"COLLABORATOR":           0,
	"CONTRIBUTOR":            1,
	"FIRST_TIMER":            2,
	"FIRST_TIME_CONTRIBUTOR": 3,
	"MANNEQUIN":              4,
	"MEMBER":                 5,
	"NONE":                   6,
	"OWNER":                  7,
}

// Columns returns the full dataset header: the fixed head, one
// absolute and one relative column per section and attribute, and one
// column per topic when a topics file is in play.
func Columns(sections []Section, topicNames []string) []string {
	cols := make([]string, 0, len(baseColumns)+2*len(sectionAttributes)*len(sections)+len(topicNames))
	cols = append(cols, baseColumns...)
	for _, rel := range []string{"", "_relative"} {
		for _, attr := range sectionAttributes {
			for _, s := range sections {
				cols = append(cols, fmt.Sprintf("pull_section::%s_%s%s", s.Label, attr, rel))
			}
		}
	}
	for _, name := range topicNames {
		cols = append(cols, "pull_topic::"+strings.ReplaceAll(name, " ", "_"))
	}
	return cols
}

// pullContext carries everything a pull-linked row needs beyond the
// issue itself.
type pullContext struct {
	pull    *corpus.Pull
	tallies []Tally
	topics  []string
}

// dataRow renders one row. A nil pull context produces an issue-only
// row: pull columns empty, timestamps -1 and the milestone "-1".
func dataRow(issue *corpus.Issue, pc *pullContext, sectionCount, topicCount int) []string {
	row := make([]string, 0, len(baseColumns)+2*len(sectionAttributes)*sectionCount+topicCount)
	row = append(row,
		strconv.Itoa(issue.Number),
		issue.Title,
		unixCell(issue.CreatedAt),
		authorCell(issue.User),
		associationCell(issue),
		labelsCell(issue.Labels),
		issue.State,
		issue.StateReason,
	)
	if pc == nil {
		row = append(row,
			"",   // pull_number
			"-1", // pull_created_at
			"-1", // pull_updated_at
			"-1", // pull_merged_at
			"", "", "", "", "", "", // count columns
			"",   // pull_labels
			"-1", // pull_milestone
			"",   // pull_state
			"", "", "", "", // boolean columns
			"", // pull_mergeable_state
			"", // pull_rebaseable
		)
		for i := 0; i < 2*len(sectionAttributes)*sectionCount; i++ {
			row = append(row, "")
		}
		for i := 0; i < topicCount; i++ {
			row = append(row, "0")
		}
		return row
	}

	p := pc.pull
	row = append(row,
		strconv.Itoa(p.Number),
		unixCell(p.CreatedAt),
		unixCell(p.UpdatedAt),
		unixCell(p.MergedAt),
		strconv.Itoa(p.Comments),
		strconv.Itoa(p.ReviewComments),
		strconv.Itoa(p.Commits),
		strconv.Itoa(p.Additions),
		strconv.Itoa(p.Deletions),
		strconv.Itoa(p.ChangedFiles),
		labelsCell(p.Labels),
		milestoneCell(p.Milestone),
		p.State,
		boolCell(p.Locked),
		boolCell(p.Draft),
		boolCell(p.Merged),
		boolCell(p.Mergeable),
		p.MergeableState,
		boolCell(p.Rebaseable),
	)
	for _, tally := range pc.tallies {
		row = append(row, strconv.Itoa(tally.ChangedFiles))
	}
	for _, tally := range pc.tallies {
		row = append(row, strconv.Itoa(tally.Additions))
	}
	for _, tally := range pc.tallies {
		row = append(row, strconv.Itoa(tally.Deletions))
	}
	row = appendRelative(row, pc.tallies, func(t Tally) int { return t.ChangedFiles }, p.ChangedFiles)
	row = appendRelative(row, pc.tallies, func(t Tally) int { return t.Additions }, p.Additions)
	row = appendRelative(row, pc.tallies, func(t Tally) int { return t.Deletions }, p.Deletions)
	row = append(row, pc.topics...)
	return row
}

// appendRelative appends each section's share of the pull's total for
// one attribute. A zero total divides by one instead, keeping the
// shares defined.
func appendRelative(row []string, tallies []Tally, value func(Tally) int, total int) []string {
	if total < 1 {
		total = 1
	}
	for _, tally := range tallies {
		share := float64(value(tally)) / float64(total)
		row = append(row, strconv.FormatFloat(share, 'g', -1, 64))
	}
	return row
}

func unixCell(t time.Time) string {
	if t.IsZero() {
		return "-1"
	}
	return strconv.FormatInt(t.Unix(), 10)
}

func boolCell(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func authorCell(user *corpus.Actor) string {
	if user == nil {
		return "0"
	}
	return strconv.FormatInt(user.ID, 10)
}

func associationCell(issue *corpus.Issue) string {
	rank, ok := authorAssociationRank[issue.AuthorAssociation]
	if !ok {
		logger.Warn("dataset: issue %d has unknown author association %q", issue.Number, issue.AuthorAssociation)
		return "-1"
	}
	return strconv.Itoa(rank)
}

func labelsCell(labels []corpus.Label) string {
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = l.Name
	}
	return strings.Join(names, ",")
}

func milestoneCell(m *corpus.Milestone) string {
	if m == nil {
		return "none"
	}
	return m.Title
}
