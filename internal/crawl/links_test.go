package crawl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinkExtractor(t *testing.T) {
	e := NewLinkExtractor("octo", "hello")

	tests := []struct {
		name string
		body string
		want []int
	}{
		{
			name: "bare reference",
			body: "Closes #12",
			want: []int{12},
		},
		{
			name: "all keyword forms",
			body: "close #1 closes #2 closed #3 fix #4 fixes #5 fixed #6 resolve #7 resolves #8 resolved #9",
			want: []int{1, 2, 3, 4, 5, 6, 7, 8, 9},
		},
		{
			name: "case insensitive",
			body: "FIXES #3 and Resolves #4",
			want: []int{3, 4},
		},
		{
			name: "owner repo form",
			body: "Fixes octo/hello#77",
			want: []int{77},
		},
		{
			name: "full url form",
			body: "Resolves https://github.com/octo/hello/issues/42",
			want: []int{42},
		},
		{
			name: "other repository ignored",
			body: "Fixes octo/world#5 and fixes https://github.com/other/hello/issues/6",
			want: []int{},
		},
		{
			name: "plain mention ignored",
			body: "Related to #9, see also #10",
			want: []int{},
		},
		{
			name: "keyword inside a word ignored",
			body: "prefixes #11 work fine",
			want: []int{},
		},
		{
			name: "no whitespace ignored",
			body: "fixes#12",
			want: []int{},
		},
		{
			name: "duplicates kept in order",
			body: "Fixes #5, fixes #3, fixes #5",
			want: []int{5, 3, 5},
		},
		{
			name: "multiline body",
			body: "Summary of the change.\n\ncloses #21\nFixes octo/hello#22\n",
			want: []int{21, 22},
		},
		{
			name: "empty body",
			body: "",
			want: []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body
			assert.Equal(t, tt.want, e.Extract(&body))
		})
	}
}

func TestLinkExtractor_NilBody(t *testing.T) {
	e := NewLinkExtractor("octo", "hello")

	got := e.Extract(nil)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLinkExtractor_QuotesRepoName(t *testing.T) {
	e := NewLinkExtractor("octo", "hello.world")

	body := "Fixes octo/hello.world#8 but not octo/helloXworld#9"
	assert.Equal(t, []int{8}, e.Extract(&body))
}
