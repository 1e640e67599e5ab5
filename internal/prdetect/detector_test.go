package prdetect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSearcher returns canned merged-PR results.
type fakeSearcher struct {
	byBranch    map[string][]MergedPR
	byMention   map[int][]MergedPR
	branchErr   error
	mentionErr  error
	branchCalls int
}

func (f *fakeSearcher) MergedPRsByHeadBranch(_ context.Context, _, _, branch string) ([]MergedPR, error) {
	f.branchCalls++
	if f.branchErr != nil {
		return nil, f.branchErr
	}
	return f.byBranch[branch], nil
}

func (f *fakeSearcher) MergedPRsMentioning(_ context.Context, _, _ string, number int) ([]MergedPR, error) {
	if f.mentionErr != nil {
		return nil, f.mentionErr
	}
	return f.byMention[number], nil
}

// fakeBranch is a canned BranchReader.
type fakeBranch struct {
	name string
	err  error
}

func (f fakeBranch) CurrentBranch(context.Context) (string, error) { return f.name, f.err }

func TestFindMergedPR_BranchHeuristic(t *testing.T) {
	search := &fakeSearcher{
		byBranch: map[string][]MergedPR{
			"feature/42-add-widget": {{Number: 101, HeadBranch: "feature/42-add-widget"}},
		},
	}
	d := &Detector{Search: search, Git: fakeBranch{name: "feature/42-add-widget"}}

	pr, ok := d.FindMergedPRForIssue(context.Background(), "acme", "widgets", 42)

	require.True(t, ok)
	assert.Equal(t, 101, pr)
}

func TestFindMergedPR_BranchHeuristicFirstOfSeveral(t *testing.T) {
	search := &fakeSearcher{
		byBranch: map[string][]MergedPR{
			"fix-thing": {{Number: 5}, {Number: 9}},
		},
	}
	d := &Detector{Search: search, Git: fakeBranch{name: "fix-thing"}}

	pr, ok := d.FindMergedPRForIssue(context.Background(), "acme", "widgets", 1)

	require.True(t, ok)
	assert.Equal(t, 5, pr)
}

func TestFindMergedPR_ProtectedBranchSkipsStrategyOne(t *testing.T) {
	search := &fakeSearcher{
		byBranch: map[string][]MergedPR{"main": {{Number: 500}}},
	}
	d := &Detector{Search: search, Git: fakeBranch{name: "main"}}

	_, ok := d.FindMergedPRForIssue(context.Background(), "acme", "widgets", 42)

	assert.False(t, ok)
	assert.Zero(t, search.branchCalls, "protected branch must not be searched")
}

func TestFindMergedPR_DetachedHeadSkipsStrategyOne(t *testing.T) {
	search := &fakeSearcher{
		byMention: map[int][]MergedPR{
			42: {{Number: 7, Body: "Closes #42"}},
		},
	}
	d := &Detector{Search: search, Git: fakeBranch{name: ""}}

	pr, ok := d.FindMergedPRForIssue(context.Background(), "acme", "widgets", 42)

	require.True(t, ok)
	assert.Equal(t, 7, pr)
	assert.Zero(t, search.branchCalls)
}

func TestFindMergedPR_BackReference(t *testing.T) {
	search := &fakeSearcher{
		byMention: map[int][]MergedPR{
			8: {
				{Number: 30, Body: "Refactors the parser. See discussion in #8."},
				{Number: 31, Body: "Fixes #8 by rewriting the tokenizer."},
			},
		},
	}
	d := &Detector{Search: search, Git: fakeBranch{name: "main"}}

	pr, ok := d.FindMergedPRForIssue(context.Background(), "acme", "widgets", 8)

	require.True(t, ok)
	assert.Equal(t, 31, pr, "only the PR with a structured closing reference counts")
}

func TestFindMergedPR_NumericPrefixIsNotAMatch(t *testing.T) {
	search := &fakeSearcher{
		byMention: map[int][]MergedPR{
			// The search API's substring match surfaces #220's PR for issue #22.
			22: {{Number: 40, Body: "Closes #220"}},
		},
	}
	d := &Detector{Search: search, Git: fakeBranch{name: "main"}}

	_, ok := d.FindMergedPRForIssue(context.Background(), "acme", "widgets", 22)

	assert.False(t, ok)
}

func TestFindMergedPR_NoMatch(t *testing.T) {
	d := &Detector{Search: &fakeSearcher{}, Git: fakeBranch{name: "feature/nothing"}}

	_, ok := d.FindMergedPRForIssue(context.Background(), "acme", "widgets", 99)

	assert.False(t, ok)
}

func TestFindMergedPR_SearchErrorsAreNoData(t *testing.T) {
	search := &fakeSearcher{
		branchErr:  errors.New("rate limited"),
		mentionErr: errors.New("rate limited"),
	}
	d := &Detector{Search: search, Git: fakeBranch{name: "feature/x"}}

	_, ok := d.FindMergedPRForIssue(context.Background(), "acme", "widgets", 1)

	assert.False(t, ok)
}

func TestParseClosingRefs(t *testing.T) {
	body := "Fixes #12, closes #34.\n\nResolved: #56 and mentions #78 without a keyword."

	refs := parseClosingRefs(body)

	assert.Equal(t, []int{12, 34, 56}, refs)
}

func TestParseClosingRefs_KeywordVariants(t *testing.T) {
	for _, body := range []string{
		"close #9", "closes #9", "closed #9",
		"fix #9", "fixes #9", "fixed #9",
		"resolve #9", "resolves #9", "resolved #9",
		"CLOSES #9", "Fixes: #9",
	} {
		refs := parseClosingRefs(body)
		assert.Equal(t, []int{9}, refs, "body %q", body)
	}
}
