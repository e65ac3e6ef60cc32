package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florenceboettger/ghpr-tools/internal/corpus"
)

func TestColumns(t *testing.T) {
	cols := Columns(DefaultSections(), nil)

	require.Len(t, cols, 81)
	assert.Equal(t, "issue_number", cols[0])
	assert.Equal(t, "issue_labels#Lst", cols[5])
	assert.Equal(t,
		"pull_milestone#Ord(none,-1,December 2025,January 2026,February 2026,March 2026,April 2026,On Deck,Backlog,Backlog Candidates)",
		cols[19])
	assert.Equal(t, "pull_rebaseable", cols[26])

	// Section columns group by attribute, sections innermost, with
	// the absolute block before the relative one.
	assert.Equal(t, "pull_section::build_changed_files", cols[27])
	assert.Equal(t, "pull_section::other_changed_files", cols[35])
	assert.Equal(t, "pull_section::build_additions", cols[36])
	assert.Equal(t, "pull_section::other_deletions", cols[53])
	assert.Equal(t, "pull_section::build_changed_files_relative", cols[54])
	assert.Equal(t, "pull_section::other_deletions_relative", cols[80])
}

func TestColumns_Topics(t *testing.T) {
	cols := Columns(DefaultSections(), []string{"Build Tools", "API"})

	require.Len(t, cols, 83)
	assert.Equal(t, "pull_topic::Build_Tools", cols[81])
	assert.Equal(t, "pull_topic::API", cols[82])
}

func sampleIssue() *corpus.Issue {
	return &corpus.Issue{
		Number:            7,
		Title:             "Crash when saving",
		CreatedAt:         time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
		User:              &corpus.Actor{ID: 583231},
		AuthorAssociation: "CONTRIBUTOR",
		Labels:            []corpus.Label{{Name: "bug"}, {Name: "ui"}},
		State:             "closed",
		StateReason:       "completed",
	}
}

func samplePullContext() *pullContext {
	tallies := make([]Tally, len(DefaultSections()))
	// Index 6 is src, index 8 the catch-all.
	tallies[6] = Tally{ChangedFiles: 2, Additions: 10, Deletions: 4}
	tallies[8] = Tally{ChangedFiles: 2, Additions: 10, Deletions: 4}
	return &pullContext{
		pull: &corpus.Pull{
			Number:         42,
			CreatedAt:      time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
			MergedAt:       time.Date(2024, 1, 13, 0, 0, 0, 0, time.UTC),
			Comments:       3,
			ReviewComments: 1,
			Commits:        2,
			Additions:      20,
			Deletions:      8,
			ChangedFiles:   4,
			Labels:         []corpus.Label{{Name: "backend"}},
			Milestone:      &corpus.Milestone{Title: "On Deck"},
			State:          "closed",
			Locked:         false,
			Draft:          false,
			Merged:         true,
			Mergeable:      false,
			MergeableState: "unknown",
			Rebaseable:     false,
		},
		tallies: tallies,
	}
}

func TestDataRow_WithPull(t *testing.T) {
	row := dataRow(sampleIssue(), samplePullContext(), len(DefaultSections()), 0)

	require.Len(t, row, 81)
	assert.Equal(t, "7", row[0])
	assert.Equal(t, "Crash when saving", row[1])
	assert.Equal(t, "1704888000", row[2])
	assert.Equal(t, "583231", row[3])
	assert.Equal(t, "1", row[4], "CONTRIBUTOR ranks 1")
	assert.Equal(t, "bug,ui", row[5])
	assert.Equal(t, "closed", row[6])
	assert.Equal(t, "completed", row[7])

	assert.Equal(t, "42", row[8])
	assert.Equal(t, "1705017600", row[9])
	assert.Equal(t, "-1", row[10], "missing update timestamp")
	assert.Equal(t, "1705104000", row[11])
	assert.Equal(t, "3", row[12])
	assert.Equal(t, "backend", row[18])
	assert.Equal(t, "On Deck", row[19])
	assert.Equal(t, "closed", row[20])
	assert.Equal(t, "0", row[21])
	assert.Equal(t, "1", row[23], "merged flag")
	assert.Equal(t, "0", row[24], "null mergeable reads as 0")
	assert.Equal(t, "unknown", row[25])

	// src sits at section index 6: absolute counts, then shares of
	// the pull totals.
	assert.Equal(t, "2", row[27+6])
	assert.Equal(t, "10", row[36+6])
	assert.Equal(t, "4", row[45+6])
	assert.Equal(t, "0.5", row[54+6])
	assert.Equal(t, "0.5", row[63+6])
	assert.Equal(t, "0.5", row[72+6])
	assert.Equal(t, "0", row[27], "untouched section stays zero")
	assert.Equal(t, "0", row[54])
}

func TestDataRow_IssueOnly(t *testing.T) {
	row := dataRow(sampleIssue(), nil, len(DefaultSections()), 0)

	require.Len(t, row, 81)
	assert.Equal(t, "7", row[0])
	assert.Equal(t, "", row[8], "no pull number")
	assert.Equal(t, "-1", row[9])
	assert.Equal(t, "-1", row[10])
	assert.Equal(t, "-1", row[11])
	assert.Equal(t, "", row[12])
	assert.Equal(t, "", row[18])
	assert.Equal(t, "-1", row[19], "milestone placeholder")
	assert.Equal(t, "", row[23])
	for i := 27; i < 81; i++ {
		assert.Equal(t, "", row[i], "section column %d", i)
	}
}

func TestDataRow_TopicColumns(t *testing.T) {
	pc := samplePullContext()
	pc.topics = []string{"0.9", "0.1"}

	row := dataRow(sampleIssue(), pc, len(DefaultSections()), 2)
	require.Len(t, row, 83)
	assert.Equal(t, "0.9", row[81])
	assert.Equal(t, "0.1", row[82])

	row = dataRow(sampleIssue(), nil, len(DefaultSections()), 2)
	require.Len(t, row, 83)
	assert.Equal(t, "0", row[81], "issue-only rows carry zero topics")
	assert.Equal(t, "0", row[82])
}

func TestDataRow_ZeroTotalsKeepSharesDefined(t *testing.T) {
	pc := samplePullContext()
	pc.pull.Additions = 0
	pc.pull.Deletions = 0
	pc.pull.ChangedFiles = 0
	pc.tallies = make([]Tally, len(DefaultSections()))

	row := dataRow(sampleIssue(), pc, len(DefaultSections()), 0)

	for i := 54; i < 81; i++ {
		assert.Equal(t, "0", row[i])
	}
}

func TestDataRow_MilestoneAbsent(t *testing.T) {
	pc := samplePullContext()
	pc.pull.Milestone = nil

	row := dataRow(sampleIssue(), pc, len(DefaultSections()), 0)

	assert.Equal(t, "none", row[19])
}

func TestDataRow_UnknownAssociation(t *testing.T) {
	issue := sampleIssue()
	issue.AuthorAssociation = "ROBOT"

	row := dataRow(issue, nil, len(DefaultSections()), 0)

	assert.Equal(t, "-1", row[4])
}

func TestDataRow_NilUser(t *testing.T) {
	issue := sampleIssue()
	issue.User = nil

	row := dataRow(issue, nil, len(DefaultSections()), 0)

	assert.Equal(t, "0", row[3])
}
